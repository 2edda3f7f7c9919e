package domain

import "time"

type User struct {
	ID                string    `json:"id" db:"id"`
	ExternalID        string    `json:"external_id" db:"external_id"`
	Name              string    `json:"name" db:"name"`
	FocusCoins        int       `json:"focus_coins" db:"focus_coins"`
	TotalPomodoros    int       `json:"total_pomodoros" db:"total_pomodoros"`
	TotalFocusMinutes int       `json:"total_focus_minutes" db:"total_focus_minutes"`
	CompletedTasks    int       `json:"completed_tasks" db:"completed_tasks"`
	CurrentStreak     int       `json:"current_streak" db:"current_streak"`
	BestStreak        int       `json:"best_streak" db:"best_streak"`
	LastActiveDate    time.Time `json:"last_active_date" db:"last_active_date"` // zero when never active
	Achievements      []string  `json:"achievements" db:"-"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// HasAchievement reports whether the achievement is already unlocked.
func (u *User) HasAchievement(id string) bool {
	for _, a := range u.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// UserDelta is added to the user's counters in one store round-trip.
type UserDelta struct {
	FocusCoins        int
	TotalPomodoros    int
	TotalFocusMinutes int
	CompletedTasks    int
}

// UserStats holds the rolling counters for today and the current week.
type UserStats struct {
	UserID            string `json:"user_id" db:"user_id"`
	TodayPomodoros    int    `json:"today_pomodoros" db:"today_pomodoros"`
	TodayFocusMinutes int    `json:"today_focus_minutes" db:"today_focus_minutes"`
	TodayTasks        int    `json:"today_tasks" db:"today_tasks"`
	TodayCoins        int    `json:"today_coins" db:"today_coins"`
	WeekPomodoros     int    `json:"week_pomodoros" db:"week_pomodoros"`
	WeekFocusMinutes  int    `json:"week_focus_minutes" db:"week_focus_minutes"`
	WeekTasks         int    `json:"week_tasks" db:"week_tasks"`
	WeekCoins         int    `json:"week_coins" db:"week_coins"`
}

// StatsDelta is applied to both the daily and the weekly counters.
type StatsDelta struct {
	Pomodoros    int
	FocusMinutes int
	Tasks        int
	Coins        int
}

func (d StatsDelta) IsZero() bool {
	return d == StatsDelta{}
}
