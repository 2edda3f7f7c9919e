package domain

import (
	"context"
	"time"
)

// Repositories return a nil entity and a nil error when the entity is absent.

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUserName(ctx context.Context, id, name string) error
	ListUsers(ctx context.Context) ([]*User, error)
	IncrementUser(ctx context.Context, id string, delta UserDelta) (*User, error)
	SetStreak(ctx context.Context, id string, current, best int, lastActive time.Time) (*User, error)
	// AddAchievement records an unlock and reports false if it was already recorded.
	AddAchievement(ctx context.Context, id, achievementID string, at time.Time) (bool, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *FocusSession) error
	GetSession(ctx context.Context, id string) (*FocusSession, error)
	GetActiveSession(ctx context.Context, userID string) (*FocusSession, error)
	ListOpenSessions(ctx context.Context) ([]*FocusSession, error)
	// FinishSession ends a running session. It returns nil when the session is
	// absent or already ended, so only one caller can ever finish it.
	FinishSession(ctx context.Context, id string, finish SessionFinish) (*FocusSession, error)
}

type PodRepository interface {
	CreatePod(ctx context.Context, pod *Pod) error
	GetPod(ctx context.Context, id string) (*Pod, error)
	GetPodByInviteCode(ctx context.Context, code string) (*Pod, error)
	// TransitionPod moves the pod to `to` only if its status is one of `from`,
	// returning nil otherwise.
	TransitionPod(ctx context.Context, id string, from []PodStatus, to PodStatus, times PodTimes) (*Pod, error)
	AddParticipant(ctx context.Context, podID string, participant PodParticipant) (*Pod, error)
	RemoveParticipant(ctx context.Context, podID, userID string) (*Pod, error)
	SetParticipantAction(ctx context.Context, podID, userID string, action SessionAction, completed bool) (*Pod, error)
	ListPodsForUser(ctx context.Context, userID string, statuses ...PodStatus) ([]*Pod, error)
	ListPodsByStatus(ctx context.Context, status PodStatus) ([]*Pod, error)
	CountPodsCreatedBy(ctx context.Context, userID string) (int, error)
}

type StatsRepository interface {
	// GetStats returns zeroed stats for users without a row.
	GetStats(ctx context.Context, userID string) (*UserStats, error)
	IncrementStats(ctx context.Context, userID string, delta StatsDelta) error
	ResetDailyStats(ctx context.Context) error
	ResetWeeklyStats(ctx context.Context) error
}

type Store interface {
	UserRepository
	SessionRepository
	PodRepository
	StatsRepository
}
