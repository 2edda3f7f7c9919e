package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	walog "go.mau.fi/whatsmeow/util/log"

	"github.com/fardannozami/focuspod/internal/app/timer"
	"github.com/fardannozami/focuspod/internal/domain"
)

var (
	streakBonusStep = decimal.NewFromFloat(0.1)
	streakBonusCap  = decimal.NewFromFloat(0.5)
	podBonus        = decimal.NewFromFloat(0.5)
)

// CalculatePomodoroReward returns base plus a streak bonus of 10% per three
// streak days (capped at 50%) plus a flat 50% when focusing in a pod, rounded
// to the nearest coin.
func CalculatePomodoroReward(base, streak int, inPod bool) int {
	b := decimal.NewFromInt(int64(base))

	steps := streak / 3
	if steps < 0 {
		steps = 0
	}
	bonus := decimal.NewFromInt(int64(steps)).Mul(streakBonusStep)
	if bonus.GreaterThan(streakBonusCap) {
		bonus = streakBonusCap
	}

	reward := b.Add(b.Mul(bonus))
	if inPod {
		reward = reward.Add(b.Mul(podBonus))
	}
	return int(reward.Round(0).IntPart())
}

type StreakUpdate struct {
	Current  int
	Best     int
	Changed  bool
	Unlocked []string
}

// RewardUsecase owns coins, streaks and achievement unlocks.
type RewardUsecase struct {
	store    domain.Store
	notifier domain.Notifier
	clock    timer.Clock
	log      walog.Logger

	unlockMu sync.Mutex
}

func NewRewardUsecase(store domain.Store, notifier domain.Notifier, clock timer.Clock, logger walog.Logger) *RewardUsecase {
	return &RewardUsecase{
		store:    store,
		notifier: notifier,
		clock:    clock,
		log:      logger,
	}
}

func (uc *RewardUsecase) AwardCoins(ctx context.Context, userID string, amount int) (*domain.User, error) {
	user, err := uc.store.IncrementUser(ctx, userID, domain.UserDelta{FocusCoins: amount})
	if err != nil {
		return nil, fmt.Errorf("award coins: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if amount > 0 {
		if err := uc.store.IncrementStats(ctx, userID, domain.StatsDelta{Coins: amount}); err != nil {
			return nil, fmt.Errorf("award coins: %w", err)
		}
	}
	return user, nil
}

// UpdateStreak records today's activity. Calling it again on the same day is a no-op.
func (uc *RewardUsecase) UpdateStreak(ctx context.Context, userID string) (*StreakUpdate, error) {
	user, err := uc.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("update streak: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	now := uc.clock.Now()
	today := dayOf(now)

	current := 1
	if !user.LastActiveDate.IsZero() {
		last := dayOf(user.LastActiveDate.In(now.Location()))
		if !last.Before(today) {
			return &StreakUpdate{Current: user.CurrentStreak, Best: user.BestStreak}, nil
		}
		if last.Equal(today.AddDate(0, 0, -1)) {
			current = user.CurrentStreak + 1
		}
	}
	best := user.BestStreak
	if current > best {
		best = current
	}

	updated, err := uc.store.SetStreak(ctx, userID, current, best, today)
	if err != nil {
		return nil, fmt.Errorf("update streak: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrUserNotFound
	}

	result := &StreakUpdate{Current: updated.CurrentStreak, Best: updated.BestStreak, Changed: true}
	for _, a := range domain.Achievements() {
		if a.Requirement.Kind != domain.RequireStreak || a.Requirement.Threshold != current {
			continue
		}
		ok, err := uc.UnlockAchievement(ctx, userID, a.ID)
		if err != nil {
			return result, err
		}
		if ok {
			result.Unlocked = append(result.Unlocked, a.ID)
		}
	}
	return result, nil
}

// UnlockAchievement is the only path that grants an achievement. It returns
// false when the user already has it.
func (uc *RewardUsecase) UnlockAchievement(ctx context.Context, userID, achievementID string) (bool, error) {
	achievement, ok := domain.FindAchievement(achievementID)
	if !ok {
		return false, domain.ErrAchievementNotFound
	}

	uc.unlockMu.Lock()
	defer uc.unlockMu.Unlock()

	user, err := uc.store.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	if user == nil {
		return false, domain.ErrUserNotFound
	}
	if user.HasAchievement(achievementID) {
		return false, nil
	}

	added, err := uc.store.AddAchievement(ctx, userID, achievementID, uc.clock.Now())
	if err != nil {
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	if !added {
		return false, nil
	}

	if achievement.Reward > 0 {
		if _, err := uc.AwardCoins(ctx, userID, achievement.Reward); err != nil {
			return true, err
		}
	}

	uc.log.Infof("User %s unlocked %s", userID, achievementID)
	uc.notify(ctx, userID, domain.Notification{
		Kind:        domain.NotifyAchievementUnlocked,
		Achievement: &achievement,
	})
	return true, nil
}

// CheckAchievements unlocks every catalog entry the user currently satisfies.
func (uc *RewardUsecase) CheckAchievements(ctx context.Context, userID string) ([]string, error) {
	user, err := uc.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check achievements: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	progress := domain.ProgressOf(user)
	progress.PodsCreated, err = uc.store.CountPodsCreatedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check achievements: %w", err)
	}

	var unlocked []string
	for _, a := range domain.Achievements() {
		if user.HasAchievement(a.ID) || !a.Requirement.Satisfied(progress) {
			continue
		}
		ok, err := uc.UnlockAchievement(ctx, userID, a.ID)
		if err != nil {
			return unlocked, err
		}
		if ok {
			unlocked = append(unlocked, a.ID)
		}
	}
	return unlocked, nil
}

func (uc *RewardUsecase) notify(ctx context.Context, userID string, n domain.Notification) {
	if err := uc.notifier.Notify(ctx, userID, n); err != nil {
		uc.log.Warnf("Failed to deliver %s to %s: %v", n.Kind, userID, err)
	}
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
