package domain

import (
	"strings"
	"time"
)

// SessionAction is what the user chose to do once a focus interval ended.
type SessionAction string

const (
	ActionNone      SessionAction = ""
	ActionCompleted SessionAction = "completed" // task finished
	ActionContinue  SessionAction = "continue"  // needs more time
	ActionBreak     SessionAction = "break"
)

// ParseSessionAction accepts the action names case-insensitively.
func ParseSessionAction(s string) (SessionAction, bool) {
	switch SessionAction(strings.ToLower(strings.TrimSpace(s))) {
	case ActionNone:
		return ActionNone, true
	case ActionCompleted, "done":
		return ActionCompleted, true
	case ActionContinue:
		return ActionContinue, true
	case ActionBreak:
		return ActionBreak, true
	}
	return ActionNone, false
}

type FocusSession struct {
	ID              string        `json:"id" db:"id"`
	UserID          string        `json:"user_id" db:"user_id"`
	DurationMinutes int           `json:"duration_minutes" db:"duration_minutes"`
	StartTime       time.Time     `json:"start_time" db:"start_time"`
	EndTime         *time.Time    `json:"end_time,omitempty" db:"end_time"`
	Completed       bool          `json:"completed" db:"completed"`
	PodID           string        `json:"pod_id,omitempty" db:"pod_id"`
	Action          SessionAction `json:"action,omitempty" db:"action"`
	Reward          int           `json:"reward" db:"reward"`
}

// Running reports whether the session has not reached a terminal state.
func (s *FocusSession) Running() bool {
	return s.EndTime == nil
}

// PlannedEnd is the moment the nominal duration elapses.
func (s *FocusSession) PlannedEnd() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// SessionFinish is the single terminal write applied to a running session.
type SessionFinish struct {
	EndTime   time.Time
	Completed bool
	Action    SessionAction
	Reward    int
}

// Remaining is the time left on a session or pod, for progress display.
type Remaining struct {
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// RemainingUntil computes max(0, end-now) split into minutes and seconds.
func RemainingUntil(end, now time.Time) Remaining {
	left := end.Sub(now)
	if left < 0 {
		left = 0
	}
	secs := int(left / time.Second)
	return Remaining{Minutes: secs / 60, Seconds: secs % 60}
}
