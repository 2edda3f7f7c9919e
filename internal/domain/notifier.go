package domain

import "context"

type NotificationKind string

const (
	NotifySessionTimeUp       NotificationKind = "session_time_up"
	NotifyAchievementUnlocked NotificationKind = "achievement_unlocked"
	NotifyPodJoined           NotificationKind = "pod_joined"
	NotifyPodStarted          NotificationKind = "pod_started"
	NotifyPodFinished         NotificationKind = "pod_finished"
	NotifyPodCancelled        NotificationKind = "pod_cancelled"
	NotifyDailyReminder       NotificationKind = "daily_reminder"
	NotifyStreakWarning       NotificationKind = "streak_warning"
	NotifyWeeklySummary       NotificationKind = "weekly_summary"
)

// Notification is the typed payload handed to a Notifier. Rendering it to text
// is the transport's job. Only the fields relevant to Kind are set.
type Notification struct {
	Kind NotificationKind

	SessionID       string
	DurationMinutes int

	PodID           string
	PodTitle        string
	Headcount       int
	ParticipantName string

	Achievement *Achievement

	Streak    int
	HoursLeft int
	Stats     *UserStats
}

// Notifier delivers notifications to a user. Delivery is fire-and-forget for the
// engine: a returned error is logged, never retried and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, userID string, n Notification) error
}
