package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type Config struct {
	SQLitePath  string
	StoreDriver string // sqlite or memory; the WhatsApp session always lives in SQLitePath
	GroupID     string
	BotPhone    string
	LogLevel    string
	Location    *time.Location

	DefaultFocusMinutes int
	MaxFocusMinutes     int
	BaseReward          int
	InviteLinkBase      string

	CronDailyReminder string
	CronStreakWarning string
	CronWeeklySummary string
	CronDailyReset    string
	CronWeeklyReset   string

	ReplyDelayMinMs int // Minimum delay before reply (milliseconds)
	ReplyDelayMaxMs int // Maximum delay before reply (milliseconds), 0 = use min as fixed
	ShowTyping      bool
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults/environment variables")
	}

	botPhone := getenv("BOT_PHONE", "")

	return Config{
		SQLitePath:  getenv("SQLITE_PATH", "./data/focuspod.db"),
		StoreDriver: getenv("STORE_DRIVER", StoreSQLite),
		GroupID:     getenv("GROUP_ID", ""),
		BotPhone:    botPhone,
		LogLevel:    getenv("LOG_LEVEL", "INFO"),
		Location:    getenvLocation("TIMEZONE", time.Local),

		DefaultFocusMinutes: getenvInt("DEFAULT_FOCUS_MINUTES", 25),
		MaxFocusMinutes:     getenvInt("MAX_FOCUS_MINUTES", 180),
		BaseReward:          getenvInt("BASE_REWARD", 10),
		InviteLinkBase:      getenv("INVITE_LINK_BASE", "https://wa.me/"+botPhone+"?text="),

		CronDailyReminder: getenv("CRON_DAILY_REMINDER", "0 10 * * *"),
		CronStreakWarning: getenv("CRON_STREAK_WARNING", "0 20 * * *"),
		CronWeeklySummary: getenv("CRON_WEEKLY_SUMMARY", "0 19 * * 0"),
		CronDailyReset:    getenv("CRON_DAILY_RESET", "0 0 * * *"),
		CronWeeklyReset:   getenv("CRON_WEEKLY_RESET", "0 0 * * 1"),

		ReplyDelayMinMs: getenvInt("REPLY_DELAY_MIN_MS", 0),
		ReplyDelayMaxMs: getenvInt("REPLY_DELAY_MAX_MS", 0),
		ShowTyping:      getenvBool("SHOW_TYPING", false),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getenvLocation(key string, fallback *time.Location) *time.Location {
	if v := os.Getenv(key); v != "" {
		loc, err := time.LoadLocation(v)
		if err == nil {
			return loc
		}
		log.Printf("Invalid %s %q, using %s", key, v, fallback)
	}
	return fallback
}
