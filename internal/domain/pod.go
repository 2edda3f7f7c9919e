package domain

import "time"

type PodStatus string

const (
	PodWaiting   PodStatus = "WAITING"
	PodActive    PodStatus = "ACTIVE"
	PodCompleted PodStatus = "COMPLETED"
	PodCancelled PodStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s PodStatus) Terminal() bool {
	return s == PodCompleted || s == PodCancelled
}

type PodParticipant struct {
	UserID    string        `json:"user_id" db:"user_id"`
	Name      string        `json:"name" db:"name"`
	JoinedAt  time.Time     `json:"joined_at" db:"joined_at"`
	IsCreator bool          `json:"is_creator" db:"is_creator"`
	Action    SessionAction `json:"action,omitempty" db:"action"`
	Completed bool          `json:"completed" db:"completed"`
}

type Pod struct {
	ID              string           `json:"id" db:"id"`
	InviteCode      string           `json:"invite_code" db:"invite_code"`
	CreatorID       string           `json:"creator_id" db:"creator_id"`
	Title           string           `json:"title" db:"title"`
	DurationMinutes int              `json:"duration_minutes" db:"duration_minutes"`
	Participants    []PodParticipant `json:"participants" db:"-"`
	Status          PodStatus        `json:"status" db:"status"`
	StartTime       *time.Time       `json:"start_time,omitempty" db:"start_time"`
	EndTime         *time.Time       `json:"end_time,omitempty" db:"end_time"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	InviteLink      string           `json:"invite_link,omitempty" db:"-"`
}

// Participant returns the participant with the given user id, or nil.
func (p *Pod) Participant(userID string) *PodParticipant {
	for i := range p.Participants {
		if p.Participants[i].UserID == userID {
			return &p.Participants[i]
		}
	}
	return nil
}

func (p *Pod) IsCreator(userID string) bool {
	return p.CreatorID == userID
}

// PodTimes carries the timestamps stamped by a status transition. Nil fields are left untouched.
type PodTimes struct {
	StartTime *time.Time
	EndTime   *time.Time
}
