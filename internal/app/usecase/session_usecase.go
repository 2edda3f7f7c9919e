package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	walog "go.mau.fi/whatsmeow/util/log"

	"github.com/fardannozami/focuspod/internal/app/timer"
	"github.com/fardannozami/focuspod/internal/domain"
)

// A manual completion flagged as early is rewarded only past this share of the planned duration.
const earlyCompletionThreshold = 0.9

type SessionOptions struct {
	BaseReward         int
	MaxDurationMinutes int
}

type CompletionResult struct {
	Session       *domain.FocusSession
	Reward        int
	Rewarded      bool
	Unlocked      []string
	ActualMinutes int
}

// SessionUsecase runs a user's solo focus interval. Pod sessions go through it too.
type SessionUsecase struct {
	store    domain.Store
	rewards  *RewardUsecase
	notifier domain.Notifier
	timers   *timer.Scheduler
	clock    timer.Clock
	log      walog.Logger
	opts     SessionOptions

	startMu sync.Mutex
}

func NewSessionUsecase(store domain.Store, rewards *RewardUsecase, notifier domain.Notifier, timers *timer.Scheduler, opts SessionOptions, logger walog.Logger) *SessionUsecase {
	return &SessionUsecase{
		store:    store,
		rewards:  rewards,
		notifier: notifier,
		timers:   timers,
		clock:    timers.Clock(),
		log:      logger,
		opts:     opts,
	}
}

func sessionTimerID(id string) string {
	return "session:" + id
}

func (uc *SessionUsecase) validDuration(minutes int) bool {
	return minutes > 0 && (uc.opts.MaxDurationMinutes <= 0 || minutes <= uc.opts.MaxDurationMinutes)
}

// Start opens a session for the user. podID is empty for solo sessions.
func (uc *SessionUsecase) Start(ctx context.Context, userID string, durationMinutes int, podID string) (*domain.FocusSession, error) {
	if !uc.validDuration(durationMinutes) {
		return nil, domain.ErrInvalidDuration
	}

	user, err := uc.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	uc.startMu.Lock()
	defer uc.startMu.Unlock()

	active, err := uc.store.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if active != nil {
		return nil, domain.ErrSessionAlreadyActive
	}

	session := &domain.FocusSession{
		ID:              uuid.NewString(),
		UserID:          userID,
		DurationMinutes: durationMinutes,
		StartTime:       uc.clock.Now(),
		PodID:           podID,
	}
	if err := uc.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	// starting counts as today's activity even if the session is later abandoned
	if _, err := uc.rewards.UpdateStreak(ctx, userID); err != nil {
		uc.log.Errorf("Failed to update streak for %s: %v", userID, err)
	}

	uc.arm(session)
	uc.log.Infof("User %s started %d min session %s", userID, durationMinutes, session.ID)
	return session, nil
}

func (uc *SessionUsecase) arm(session *domain.FocusSession) {
	delay := session.PlannedEnd().Sub(uc.clock.Now())
	id := session.ID
	uc.timers.Arm(sessionTimerID(id), delay, func() {
		uc.onTimeout(context.Background(), id)
	})
}

// onTimeout only prompts the user; completion always needs an explicit action.
func (uc *SessionUsecase) onTimeout(ctx context.Context, sessionID string) {
	session, err := uc.store.GetSession(ctx, sessionID)
	if err != nil {
		uc.log.Errorf("Timeout for session %s: %v", sessionID, err)
		return
	}
	if session == nil || !session.Running() {
		return
	}

	uc.log.Debugf("Session %s reached its planned end", sessionID)
	n := domain.Notification{
		Kind:            domain.NotifySessionTimeUp,
		SessionID:       session.ID,
		DurationMinutes: session.DurationMinutes,
		PodID:           session.PodID,
	}
	if err := uc.notifier.Notify(ctx, session.UserID, n); err != nil {
		uc.log.Warnf("Failed to deliver time-up prompt to %s: %v", session.UserID, err)
	}
}

// Complete ends a running session and pays out when it qualifies. A session
// finishes exactly once; later calls get ErrSessionAlreadyCompleted and change nothing.
func (uc *SessionUsecase) Complete(ctx context.Context, sessionID string, action domain.SessionAction, early bool) (*CompletionResult, error) {
	session, err := uc.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	if !session.Running() {
		return nil, domain.ErrSessionAlreadyCompleted
	}

	user, err := uc.store.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	now := uc.clock.Now()
	actual := int(now.Sub(session.StartTime) / time.Minute)
	if actual < 0 {
		actual = 0
	}
	rate := float64(actual) / float64(session.DurationMinutes)
	rewarded := rate >= earlyCompletionThreshold || !early

	reward := 0
	if rewarded {
		reward = CalculatePomodoroReward(uc.opts.BaseReward, user.CurrentStreak, session.PodID != "")
	}

	finished, err := uc.store.FinishSession(ctx, sessionID, domain.SessionFinish{
		EndTime:   now,
		Completed: true,
		Action:    action,
		Reward:    reward,
	})
	if err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	if finished == nil {
		// lost the race against another completion or a cancel
		return nil, domain.ErrSessionAlreadyCompleted
	}
	uc.timers.Disarm(sessionTimerID(sessionID))

	result := &CompletionResult{
		Session:       finished,
		Reward:        reward,
		Rewarded:      rewarded,
		ActualMinutes: actual,
	}

	userDelta := domain.UserDelta{TotalFocusMinutes: actual}
	statsDelta := domain.StatsDelta{FocusMinutes: actual}
	if action == domain.ActionCompleted {
		userDelta.CompletedTasks = 1
		statsDelta.Tasks = 1
	}
	if rewarded {
		userDelta.TotalPomodoros = 1
		statsDelta.Pomodoros = 1
	}

	if _, err := uc.store.IncrementUser(ctx, session.UserID, userDelta); err != nil {
		return result, fmt.Errorf("complete session: %w", err)
	}
	if err := uc.store.IncrementStats(ctx, session.UserID, statsDelta); err != nil {
		return result, fmt.Errorf("complete session: %w", err)
	}

	if rewarded {
		if reward > 0 {
			if _, err := uc.rewards.AwardCoins(ctx, session.UserID, reward); err != nil {
				return result, err
			}
		}
		unlocked, err := uc.rewards.CheckAchievements(ctx, session.UserID)
		if err != nil {
			return result, err
		}
		result.Unlocked = unlocked
	}

	uc.log.Infof("User %s completed session %s after %d min (reward %d)", session.UserID, sessionID, actual, reward)
	return result, nil
}

// Cancel ends the session without reward. It reports false when there was nothing to cancel.
func (uc *SessionUsecase) Cancel(ctx context.Context, sessionID string) (bool, error) {
	finished, err := uc.store.FinishSession(ctx, sessionID, domain.SessionFinish{EndTime: uc.clock.Now()})
	if err != nil {
		return false, fmt.Errorf("cancel session: %w", err)
	}
	uc.timers.Disarm(sessionTimerID(sessionID))
	if finished == nil {
		return false, nil
	}
	uc.log.Infof("Session %s cancelled", sessionID)
	return true, nil
}

func (uc *SessionUsecase) GetActive(ctx context.Context, userID string) (*domain.FocusSession, error) {
	session, err := uc.store.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return session, nil
}

// Remaining returns nil when the session is absent or already ended.
func (uc *SessionUsecase) Remaining(ctx context.Context, sessionID string) (*domain.Remaining, error) {
	session, err := uc.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session remaining: %w", err)
	}
	if session == nil || !session.Running() {
		return nil, nil
	}
	r := domain.RemainingUntil(session.PlannedEnd(), uc.clock.Now())
	return &r, nil
}

// IsEarly reports whether the planned duration has not yet elapsed.
func (uc *SessionUsecase) IsEarly(session *domain.FocusSession) bool {
	return uc.clock.Now().Before(session.PlannedEnd())
}

// Restore re-arms time-up prompts for sessions left open by a previous process.
func (uc *SessionUsecase) Restore(ctx context.Context) (int, error) {
	open, err := uc.store.ListOpenSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore sessions: %w", err)
	}
	for _, s := range open {
		uc.arm(s)
	}
	if len(open) > 0 {
		uc.log.Infof("Restored %d open session timers", len(open))
	}
	return len(open), nil
}
