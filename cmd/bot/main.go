package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fardannozami/focuspod/internal/app/reminder"
	"github.com/fardannozami/focuspod/internal/app/timer"
	"github.com/fardannozami/focuspod/internal/app/usecase"
	"github.com/fardannozami/focuspod/internal/config"
	"github.com/fardannozami/focuspod/internal/domain"
	"github.com/fardannozami/focuspod/internal/infra/memory"
	"github.com/fardannozami/focuspod/internal/infra/sqlite"
	"github.com/fardannozami/focuspod/internal/infra/wa"

	walog "go.mau.fi/whatsmeow/util/log"
	_ "modernc.org/sqlite"
)

func main() {
	// 1. Load Config
	cfg := config.Load()

	// 2. Logger
	logger := walog.Stdout("Bot", cfg.LogLevel, true)

	// 3. Database & Store
	if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create data dir: %v", err)
		}
	}
	// Enable WAL mode and busy timeout to avoid "database is locked" errors
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.SQLitePath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// The sqlite store also resolves LIDs from whatsmeow's tables, so it exists in both modes.
	sqlStore := sqlite.NewStore(db)
	var store domain.Store = sqlStore
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warnf("Using in-memory store, data is lost on restart")
		store = memory.NewStore()
	default:
		if err := sqlStore.InitTables(context.Background()); err != nil {
			log.Fatalf("Failed to init tables: %v", err)
		}
	}

	// 4. WhatsApp Service & Notifier
	waService := wa.NewService(cfg.SQLitePath, logger)
	notifier := wa.NewNotifier(waService, store, logger.Sub("Notifier"))

	// 5. Use Cases
	clock := timer.SystemClock{Location: cfg.Location}
	timers := timer.NewScheduler(clock, logger.Sub("Timers"))
	rewardUC := usecase.NewRewardUsecase(store, notifier, clock, logger.Sub("Rewards"))
	sessionUC := usecase.NewSessionUsecase(store, rewardUC, notifier, timers, usecase.SessionOptions{
		BaseReward:         cfg.BaseReward,
		MaxDurationMinutes: cfg.MaxFocusMinutes,
	}, logger.Sub("Sessions"))
	podUC := usecase.NewPodUsecase(store, sessionUC, rewardUC, notifier, timers, usecase.PodOptions{
		InviteLinkBase:     cfg.InviteLinkBase,
		MaxDurationMinutes: cfg.MaxFocusMinutes,
	}, logger.Sub("Pods"))
	leaderboardUC := usecase.NewGetLeaderboardUsecase(store, clock)
	handleMessageUC := usecase.NewHandleMessageUsecase(store, sessionUC, podUC, leaderboardUC, cfg.DefaultFocusMinutes, cfg.MaxFocusMinutes)

	reminders, err := reminder.New(store, notifier, clock, reminder.Schedules{
		DailyReminder: cfg.CronDailyReminder,
		StreakWarning: cfg.CronStreakWarning,
		WeeklySummary: cfg.CronWeeklySummary,
		DailyReset:    cfg.CronDailyReset,
		WeeklyReset:   cfg.CronWeeklyReset,
	}, cfg.Location, logger.Sub("Reminders"))
	if err != nil {
		log.Fatalf("Failed to schedule reminders: %v", err)
	}

	// 6. Register Message Handler
	router := wa.NewRouter(waService, handleMessageUC, sqlStore, wa.RouterConfig{
		GroupID:         cfg.GroupID,
		ReplyDelayMinMs: cfg.ReplyDelayMinMs,
		ReplyDelayMaxMs: cfg.ReplyDelayMaxMs,
		ShowTyping:      cfg.ShowTyping,
	}, logger.Sub("Router"))
	waService.SetMessageHandler(router.HandleMessage)

	// 7. Initialize Client (DB, Device, etc) - DO NOT CONNECT YET
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := waService.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize WhatsApp service: %v", err)
	}

	// 8. Connect / Login Logic
	if !waService.IsLoggedIn() {
		if cfg.BotPhone != "" {
			// Pair Code Mode
			// Must connect first to pair
			if err := waService.Connect(); err != nil {
				log.Fatalf("Failed to connect for pairing: %v", err)
			}

			log.Println("Not logged in. Attempting to pair with phone:", cfg.BotPhone)
			code, err := waService.Pair(ctx, cfg.BotPhone)
			if err != nil {
				log.Printf("Failed to generate pair code: %v", err)
			} else {
				log.Println("==================================================")
				log.Printf("PAIR CODE: %s", code)
				log.Println("==================================================")
				log.Println("Please verify this code on your WhatsApp (Linked Devices > Link with phone number)")
			}
		} else {
			// QR Code Mode
			log.Println("Not logged in. BOT_PHONE not set. Printing QR...")
			if err := waService.PrintQR(ctx); err != nil {
				log.Fatalf("Failed to login with QR: %v", err)
			}
		}
	} else {
		// Already logged in, just connect
		if err := waService.Connect(); err != nil {
			log.Fatalf("Failed to connect: %v", err)
		}
		log.Println("Client is already logged in.")
	}

	// 9. Re-arm timers for sessions and pods that were running before a restart
	if _, err := sessionUC.Restore(ctx); err != nil {
		logger.Errorf("Failed to restore sessions: %v", err)
	}
	if _, err := podUC.Restore(ctx); err != nil {
		logger.Errorf("Failed to restore pods: %v", err)
	}
	reminders.StartAll()

	log.Println("Bot is running... Press Ctrl+C to exit.")

	// 10. Wait for OS Signal
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Shutting down...")
	stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := reminders.StopAll(stopCtx); err != nil {
		logger.Warnf("Reminder jobs did not stop cleanly: %v", err)
	}
	timers.Stop()
	waService.Disconnect()
}
