package domain

import "errors"

// ErrorKind classifies recoverable engine errors.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindAlreadyActive
	KindInvalidState
	KindAlreadyCompleted
	KindForbidden
	KindInvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAlreadyActive:
		return "already active"
	case KindInvalidState:
		return "invalid state"
	case KindAlreadyCompleted:
		return "already completed"
	case KindForbidden:
		return "forbidden"
	case KindInvalidInput:
		return "invalid input"
	}
	return "unknown"
}

// Error is a caller-facing condition. Store and notifier failures are never wrapped in it.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

var (
	ErrUserNotFound        = &Error{Kind: KindNotFound, Msg: "user not found"}
	ErrSessionNotFound     = &Error{Kind: KindNotFound, Msg: "session not found"}
	ErrPodNotFound         = &Error{Kind: KindNotFound, Msg: "pod not found"}
	ErrParticipantNotFound = &Error{Kind: KindNotFound, Msg: "participant not found"}
	ErrAchievementNotFound = &Error{Kind: KindNotFound, Msg: "achievement not found"}

	ErrSessionAlreadyActive    = &Error{Kind: KindAlreadyActive, Msg: "a focus session is already running"}
	ErrInviteCodeTaken         = &Error{Kind: KindAlreadyActive, Msg: "invite code already in use"}
	ErrSessionAlreadyCompleted = &Error{Kind: KindAlreadyCompleted, Msg: "session already completed"}

	ErrPodAlreadyStarted   = &Error{Kind: KindInvalidState, Msg: "pod already started"}
	ErrPodInvalidState     = &Error{Kind: KindInvalidState, Msg: "pod is not in a state that allows this"}
	ErrInviteCodeExhausted = &Error{Kind: KindInvalidState, Msg: "could not allocate a unique invite code"}

	ErrNotPodCreator      = &Error{Kind: KindForbidden, Msg: "only the pod creator can do this"}
	ErrCreatorCannotLeave = &Error{Kind: KindForbidden, Msg: "the pod creator cannot leave, cancel the pod instead"}

	ErrInvalidDuration = &Error{Kind: KindInvalidInput, Msg: "invalid focus duration"}
)

// KindOf returns the kind of a domain error anywhere in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
