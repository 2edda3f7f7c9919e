package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fardannozami/focuspod/internal/app/timer"
	"github.com/fardannozami/focuspod/internal/app/usecase"
	"github.com/fardannozami/focuspod/internal/domain"
	"github.com/fardannozami/focuspod/internal/infra/memory"
)

func TestLeaderboard_RanksByCoins(t *testing.T) {
	store := memory.NewStore()
	clock := timer.NewFakeClock(epoch)
	ctx := context.Background()

	yesterday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	lastWeek := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	store.CreateUser(ctx, &domain.User{ID: "a", Name: "Alice", FocusCoins: 40, CurrentStreak: 2, LastActiveDate: yesterday, CreatedAt: epoch})
	store.CreateUser(ctx, &domain.User{ID: "b", Name: "Bob", FocusCoins: 90, CurrentStreak: 5, LastActiveDate: lastWeek, CreatedAt: epoch.Add(time.Second)})
	store.CreateUser(ctx, &domain.User{ID: "c", Name: "Carol", FocusCoins: 10, CreatedAt: epoch.Add(2 * time.Second)})

	msg, err := usecase.NewGetLeaderboardUsecase(store, clock).Execute(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	bob := strings.Index(msg, "1. Bob")
	alice := strings.Index(msg, "2. Alice")
	carol := strings.Index(msg, "3. Carol")
	if bob < 0 || alice < bob || carol < alice {
		t.Errorf("Expected Bob, Alice, Carol in order, got:\n%s", msg)
	}
	if !strings.Contains(msg, "2 days streak") {
		t.Errorf("Expected Alice's live streak shown, got:\n%s", msg)
	}
	if strings.Contains(msg, "5 days streak") {
		t.Errorf("Bob's streak is broken and must not be shown, got:\n%s", msg)
	}
	if !strings.Contains(msg, "1 people keep their streak") {
		t.Errorf("Expected one live streak counted, got:\n%s", msg)
	}
}

func TestLeaderboard_Empty(t *testing.T) {
	msg, err := usecase.NewGetLeaderboardUsecase(memory.NewStore(), timer.NewFakeClock(epoch)).Execute(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(msg, "Nobody has focused yet") {
		t.Errorf("Expected empty leaderboard message, got %q", msg)
	}
}
