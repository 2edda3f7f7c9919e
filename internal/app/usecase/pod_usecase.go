package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	walog "go.mau.fi/whatsmeow/util/log"

	"github.com/fardannozami/focuspod/internal/app/timer"
	"github.com/fardannozami/focuspod/internal/domain"
)

const (
	defaultPodTitle    = "Focus Pod"
	inviteCodeLength   = 8
	maxInviteCodeTries = 5
)

type PodOptions struct {
	// InviteLinkBase is prefixed to the url-escaped "#join CODE" text.
	InviteLinkBase     string
	MaxDurationMinutes int
	// NewInviteCode overrides the random code generator.
	NewInviteCode func() string
}

// PodUsecase coordinates a group focus session. Timing for each participant is
// delegated to the SessionUsecase; the pod only arms its own completion.
type PodUsecase struct {
	store    domain.Store
	sessions *SessionUsecase
	rewards  *RewardUsecase
	notifier domain.Notifier
	timers   *timer.Scheduler
	clock    timer.Clock
	log      walog.Logger
	opts     PodOptions

	mu sync.Mutex
}

func NewPodUsecase(store domain.Store, sessions *SessionUsecase, rewards *RewardUsecase, notifier domain.Notifier, timers *timer.Scheduler, opts PodOptions, logger walog.Logger) *PodUsecase {
	if opts.NewInviteCode == nil {
		opts.NewInviteCode = randomInviteCode
	}
	return &PodUsecase{
		store:    store,
		sessions: sessions,
		rewards:  rewards,
		notifier: notifier,
		timers:   timers,
		clock:    timers.Clock(),
		log:      logger,
		opts:     opts,
	}
}

func randomInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:inviteCodeLength])
}

func podTimerID(id string) string {
	return "pod:" + id
}

// InviteLink builds the shareable deep link for an invite code.
func (uc *PodUsecase) InviteLink(code string) string {
	return uc.opts.InviteLinkBase + url.PathEscape("#join "+code)
}

func (uc *PodUsecase) withLink(pod *domain.Pod) *domain.Pod {
	if pod != nil {
		pod.InviteLink = uc.InviteLink(pod.InviteCode)
	}
	return pod
}

func (uc *PodUsecase) Create(ctx context.Context, creatorID, creatorName string, durationMinutes int, title string) (*domain.Pod, error) {
	if durationMinutes <= 0 || (uc.opts.MaxDurationMinutes > 0 && durationMinutes > uc.opts.MaxDurationMinutes) {
		return nil, domain.ErrInvalidDuration
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultPodTitle
	}

	now := uc.clock.Now()
	for attempt := 0; attempt < maxInviteCodeTries; attempt++ {
		code := strings.ToUpper(uc.opts.NewInviteCode())

		existing, err := uc.store.GetPodByInviteCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("create pod: %w", err)
		}
		if existing != nil {
			uc.log.Debugf("Invite code %s taken, retrying", code)
			continue
		}

		pod := &domain.Pod{
			ID:              uuid.NewString(),
			InviteCode:      code,
			CreatorID:       creatorID,
			Title:           title,
			DurationMinutes: durationMinutes,
			Participants: []domain.PodParticipant{{
				UserID:    creatorID,
				Name:      creatorName,
				JoinedAt:  now,
				IsCreator: true,
			}},
			Status:    domain.PodWaiting,
			CreatedAt: now,
		}
		if err := uc.store.CreatePod(ctx, pod); err != nil {
			if errors.Is(err, domain.ErrInviteCodeTaken) {
				continue
			}
			return nil, fmt.Errorf("create pod: %w", err)
		}

		if _, err := uc.rewards.CheckAchievements(ctx, creatorID); err != nil {
			uc.log.Warnf("Achievement check after pod create for %s: %v", creatorID, err)
		}
		uc.log.Infof("User %s created pod %s (%s)", creatorID, pod.ID, code)
		return uc.withLink(pod), nil
	}
	return nil, domain.ErrInviteCodeExhausted
}

// Join adds the user to a waiting pod. Joining twice returns the pod unchanged
// with joined=false.
func (uc *PodUsecase) Join(ctx context.Context, podID, userID, userName string) (*domain.Pod, bool, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	pod, err := uc.store.GetPod(ctx, podID)
	if err != nil {
		return nil, false, fmt.Errorf("join pod: %w", err)
	}
	if pod == nil {
		return nil, false, domain.ErrPodNotFound
	}
	if pod.Status != domain.PodWaiting {
		return nil, false, domain.ErrPodAlreadyStarted
	}
	if pod.Participant(userID) != nil {
		return uc.withLink(pod), false, nil
	}

	updated, err := uc.store.AddParticipant(ctx, podID, domain.PodParticipant{
		UserID:   userID,
		Name:     userName,
		JoinedAt: uc.clock.Now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("join pod: %w", err)
	}
	if updated == nil {
		return nil, false, domain.ErrPodNotFound
	}

	uc.notify(ctx, updated.CreatorID, domain.Notification{
		Kind:            domain.NotifyPodJoined,
		PodID:           updated.ID,
		PodTitle:        updated.Title,
		Headcount:       len(updated.Participants),
		ParticipantName: userName,
	})
	return uc.withLink(updated), true, nil
}

// JoinByCode resolves an invite code, case-insensitively, then joins.
func (uc *PodUsecase) JoinByCode(ctx context.Context, code, userID, userName string) (*domain.Pod, bool, error) {
	pod, err := uc.store.GetPodByInviteCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, false, fmt.Errorf("join pod: %w", err)
	}
	if pod == nil {
		return nil, false, domain.ErrPodNotFound
	}
	return uc.Join(ctx, pod.ID, userID, userName)
}

// Start activates a waiting pod and starts a pod-tagged session for every participant.
func (uc *PodUsecase) Start(ctx context.Context, podID, actorID string) (*domain.Pod, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	pod, err := uc.store.GetPod(ctx, podID)
	if err != nil {
		return nil, fmt.Errorf("start pod: %w", err)
	}
	if pod == nil {
		return nil, domain.ErrPodNotFound
	}
	if !pod.IsCreator(actorID) {
		return nil, domain.ErrNotPodCreator
	}
	if pod.Status != domain.PodWaiting {
		return nil, domain.ErrPodInvalidState
	}

	start := uc.clock.Now()
	duration := time.Duration(pod.DurationMinutes) * time.Minute
	end := start.Add(duration)
	updated, err := uc.store.TransitionPod(ctx, podID, []domain.PodStatus{domain.PodWaiting}, domain.PodActive, domain.PodTimes{
		StartTime: &start,
		EndTime:   &end,
	})
	if err != nil {
		return nil, fmt.Errorf("start pod: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrPodInvalidState
	}

	for _, p := range updated.Participants {
		if _, err := uc.sessions.Start(ctx, p.UserID, updated.DurationMinutes, updated.ID); err != nil {
			if domain.KindOf(err) == domain.KindUnknown {
				uc.abortStart(ctx, podID)
				return nil, fmt.Errorf("start pod: %w", err)
			}
			uc.log.Warnf("Pod %s: could not start session for %s: %v", podID, p.UserID, err)
		}
	}

	uc.timers.Arm(podTimerID(podID), duration, func() {
		uc.onTimeout(context.Background(), podID)
	})

	for _, p := range updated.Participants {
		if p.IsCreator {
			continue
		}
		uc.notify(ctx, p.UserID, domain.Notification{
			Kind:            domain.NotifyPodStarted,
			PodID:           updated.ID,
			PodTitle:        updated.Title,
			DurationMinutes: updated.DurationMinutes,
			Headcount:       len(updated.Participants),
		})
	}
	uc.log.Infof("Pod %s started with %d participants", podID, len(updated.Participants))
	return uc.withLink(updated), nil
}

// abortStart rolls a pod back after a failed fan-out so it does not stay
// active without a completion timer.
func (uc *PodUsecase) abortStart(ctx context.Context, podID string) {
	uc.cancelSessions(ctx, podID)
	now := uc.clock.Now()
	if _, err := uc.store.TransitionPod(ctx, podID, []domain.PodStatus{domain.PodActive}, domain.PodCancelled, domain.PodTimes{EndTime: &now}); err != nil {
		uc.log.Errorf("Pod %s: rolling back failed start: %v", podID, err)
		return
	}
	uc.log.Warnf("Pod %s cancelled after a failed start", podID)
}

// cancelSessions ends every open session tagged with the pod, including those
// of participants who have left it.
func (uc *PodUsecase) cancelSessions(ctx context.Context, podID string) {
	open, err := uc.store.ListOpenSessions(ctx)
	if err != nil {
		uc.log.Warnf("Pod %s: listing open sessions: %v", podID, err)
		return
	}
	for _, session := range open {
		if session.PodID != podID {
			continue
		}
		if _, err := uc.sessions.Cancel(ctx, session.ID); err != nil {
			uc.log.Warnf("Pod %s: cancelling session %s: %v", podID, session.ID, err)
		}
	}
}

func (uc *PodUsecase) onTimeout(ctx context.Context, podID string) {
	if _, err := uc.Complete(ctx, podID); err != nil && domain.KindOf(err) != domain.KindInvalidState {
		uc.log.Errorf("Completing pod %s on timeout: %v", podID, err)
	}
}

// Complete marks an active pod as finished. Participant sessions are left for
// each participant to complete.
func (uc *PodUsecase) Complete(ctx context.Context, podID string) (*domain.Pod, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	pod, err := uc.store.GetPod(ctx, podID)
	if err != nil {
		return nil, fmt.Errorf("complete pod: %w", err)
	}
	if pod == nil {
		return nil, domain.ErrPodNotFound
	}
	if pod.Status != domain.PodActive {
		return nil, domain.ErrPodInvalidState
	}

	now := uc.clock.Now()
	updated, err := uc.store.TransitionPod(ctx, podID, []domain.PodStatus{domain.PodActive}, domain.PodCompleted, domain.PodTimes{EndTime: &now})
	if err != nil {
		return nil, fmt.Errorf("complete pod: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrPodInvalidState
	}
	uc.timers.Disarm(podTimerID(podID))

	for _, p := range updated.Participants {
		uc.notify(ctx, p.UserID, domain.Notification{
			Kind:            domain.NotifyPodFinished,
			PodID:           updated.ID,
			PodTitle:        updated.Title,
			DurationMinutes: updated.DurationMinutes,
		})
	}
	uc.log.Infof("Pod %s completed", podID)
	return uc.withLink(updated), nil
}

// RecordParticipantAction stores what a participant did after the pod. It does
// not touch rewards, which are paid per session.
func (uc *PodUsecase) RecordParticipantAction(ctx context.Context, podID, userID string, action domain.SessionAction) (*domain.Pod, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	pod, err := uc.store.GetPod(ctx, podID)
	if err != nil {
		return nil, fmt.Errorf("record pod action: %w", err)
	}
	if pod == nil {
		return nil, domain.ErrPodNotFound
	}
	if pod.Participant(userID) == nil {
		return nil, domain.ErrParticipantNotFound
	}

	updated, err := uc.store.SetParticipantAction(ctx, podID, userID, action, action == domain.ActionCompleted)
	if err != nil {
		return nil, fmt.Errorf("record pod action: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrPodNotFound
	}
	return uc.withLink(updated), nil
}

// Cancel aborts a waiting or active pod. Open participant sessions tagged with
// the pod are cancelled with it.
func (uc *PodUsecase) Cancel(ctx context.Context, podID, actorID string) (*domain.Pod, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	pod, err := uc.store.GetPod(ctx, podID)
	if err != nil {
		return nil, fmt.Errorf("cancel pod: %w", err)
	}
	if pod == nil {
		return nil, domain.ErrPodNotFound
	}
	if !pod.IsCreator(actorID) {
		return nil, domain.ErrNotPodCreator
	}
	if pod.Status.Terminal() {
		return nil, domain.ErrPodInvalidState
	}

	now := uc.clock.Now()
	updated, err := uc.store.TransitionPod(ctx, podID, []domain.PodStatus{domain.PodWaiting, domain.PodActive}, domain.PodCancelled, domain.PodTimes{EndTime: &now})
	if err != nil {
		return nil, fmt.Errorf("cancel pod: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrPodInvalidState
	}
	uc.timers.Disarm(podTimerID(podID))

	if pod.Status == domain.PodActive {
		uc.cancelSessions(ctx, podID)
	}

	for _, p := range updated.Participants {
		if p.IsCreator {
			continue
		}
		uc.notify(ctx, p.UserID, domain.Notification{
			Kind:     domain.NotifyPodCancelled,
			PodID:    updated.ID,
			PodTitle: updated.Title,
		})
	}
	uc.log.Infof("Pod %s cancelled by %s", podID, actorID)
	return uc.withLink(updated), nil
}

func (uc *PodUsecase) Leave(ctx context.Context, podID, userID string) (*domain.Pod, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	pod, err := uc.store.GetPod(ctx, podID)
	if err != nil {
		return nil, fmt.Errorf("leave pod: %w", err)
	}
	if pod == nil {
		return nil, domain.ErrPodNotFound
	}
	if pod.IsCreator(userID) {
		return nil, domain.ErrCreatorCannotLeave
	}
	if pod.Participant(userID) == nil {
		return nil, domain.ErrParticipantNotFound
	}

	updated, err := uc.store.RemoveParticipant(ctx, podID, userID)
	if err != nil {
		return nil, fmt.Errorf("leave pod: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrPodNotFound
	}
	return uc.withLink(updated), nil
}

func (uc *PodUsecase) Get(ctx context.Context, podID string) (*domain.Pod, error) {
	pod, err := uc.store.GetPod(ctx, podID)
	if err != nil {
		return nil, fmt.Errorf("get pod: %w", err)
	}
	return uc.withLink(pod), nil
}

// ActiveForUser returns the user's waiting or active pod, if any.
func (uc *PodUsecase) ActiveForUser(ctx context.Context, userID string) (*domain.Pod, error) {
	pods, err := uc.store.ListPodsForUser(ctx, userID, domain.PodWaiting, domain.PodActive)
	if err != nil {
		return nil, fmt.Errorf("active pod: %w", err)
	}
	if len(pods) == 0 {
		return nil, nil
	}
	return uc.withLink(pods[len(pods)-1]), nil
}

// Remaining returns nil unless the pod is active.
func (uc *PodUsecase) Remaining(ctx context.Context, podID string) (*domain.Remaining, error) {
	pod, err := uc.store.GetPod(ctx, podID)
	if err != nil {
		return nil, fmt.Errorf("pod remaining: %w", err)
	}
	if pod == nil || pod.Status != domain.PodActive || pod.EndTime == nil {
		return nil, nil
	}
	r := domain.RemainingUntil(*pod.EndTime, uc.clock.Now())
	return &r, nil
}

// Restore re-arms completion for pods that were active when the process stopped.
func (uc *PodUsecase) Restore(ctx context.Context) (int, error) {
	pods, err := uc.store.ListPodsByStatus(ctx, domain.PodActive)
	if err != nil {
		return 0, fmt.Errorf("restore pods: %w", err)
	}
	now := uc.clock.Now()
	for _, p := range pods {
		if p.EndTime == nil {
			continue
		}
		id := p.ID
		uc.timers.Arm(podTimerID(id), p.EndTime.Sub(now), func() {
			uc.onTimeout(context.Background(), id)
		})
	}
	if len(pods) > 0 {
		uc.log.Infof("Restored %d active pod timers", len(pods))
	}
	return len(pods), nil
}

func (uc *PodUsecase) notify(ctx context.Context, userID string, n domain.Notification) {
	if err := uc.notifier.Notify(ctx, userID, n); err != nil {
		uc.log.Warnf("Failed to deliver %s to %s: %v", n.Kind, userID, err)
	}
}
