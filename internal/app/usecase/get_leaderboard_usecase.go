package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fardannozami/focuspod/internal/app/timer"
	"github.com/fardannozami/focuspod/internal/domain"
)

const leaderboardSize = 10

type GetLeaderboardUsecase struct {
	users domain.UserRepository
	clock timer.Clock
}

func NewGetLeaderboardUsecase(users domain.UserRepository, clock timer.Clock) *GetLeaderboardUsecase {
	return &GetLeaderboardUsecase{users: users, clock: clock}
}

// Execute ranks users by coins. A streak is shown as alive when the user was
// active today or yesterday, since there is still time to extend it today.
func (uc *GetLeaderboardUsecase) Execute(ctx context.Context) (string, error) {
	users, err := uc.users.ListUsers(ctx)
	if err != nil {
		return "", err
	}

	now := uc.clock.Now()
	today := dayOf(now)
	yesterday := today.AddDate(0, 0, -1)

	sort.SliceStable(users, func(i, j int) bool {
		if users[i].FocusCoins != users[j].FocusCoins {
			return users[i].FocusCoins > users[j].FocusCoins
		}
		return users[i].TotalFocusMinutes > users[j].TotalFocusMinutes
	})

	keepStreak := 0
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("🏆 FocusCoins leaderboard (%s)\n\n", now.Format("02-01-2006")))

	for i, u := range users {
		alive := false
		if !u.LastActiveDate.IsZero() && u.CurrentStreak > 0 {
			last := dayOf(u.LastActiveDate.In(now.Location()))
			alive = last.Equal(today) || last.Equal(yesterday)
		}
		if alive {
			keepStreak++
		}
		if i >= leaderboardSize {
			continue
		}

		line := fmt.Sprintf("%d. %s - %d coins, %d 🍅", i+1, u.Name, u.FocusCoins, u.TotalPomodoros)
		if alive {
			line += fmt.Sprintf(", %d days streak 🔥", u.CurrentStreak)
		}
		sb.WriteString(line + "\n")
	}

	if len(users) == 0 {
		sb.WriteString("Nobody has focused yet. Be the first with #focus!\n")
	}
	sb.WriteString(fmt.Sprintf("\n%d people keep their streak 🔥", keepStreak))
	return sb.String(), nil
}
