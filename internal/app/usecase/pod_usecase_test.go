package usecase_test

import (
	"context"
	"testing"
	"time"

	walog "go.mau.fi/whatsmeow/util/log"

	"github.com/fardannozami/focuspod/internal/app/usecase"
	"github.com/fardannozami/focuspod/internal/domain"
	"github.com/fardannozami/focuspod/internal/infra/memory"
)

// =============================================================================
// POD USECASE TESTS
// =============================================================================
//
// Lifecycle: WAITING -> ACTIVE -> COMPLETED, or CANCELLED from either open state.
// Only the creator may start or cancel; the creator never leaves.
//
// =============================================================================

func setupPod(t *testing.T, h *harness) *domain.Pod {
	t.Helper()
	ctx := context.Background()
	h.user(t, "alice")
	h.user(t, "bob")

	pod, err := h.pods.Create(ctx, "alice", "Alice", 50, "  Deep Work  ")
	if err != nil {
		t.Fatalf("Unexpected error creating pod: %v", err)
	}
	if _, _, err := h.pods.JoinByCode(ctx, pod.InviteCode, "bob", "Bob"); err != nil {
		t.Fatalf("Unexpected error joining pod: %v", err)
	}
	return pod
}

func TestPodCreate(t *testing.T) {
	h := newHarness(t)
	h.user(t, "alice")

	pod, err := h.pods.Create(context.Background(), "alice", "Alice", 50, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if pod.Status != domain.PodWaiting || pod.Title != "Focus Pod" || pod.DurationMinutes != 50 {
		t.Errorf("Unexpected pod: %+v", pod)
	}
	if pod.InviteCode != "CODE0001" {
		t.Errorf("Expected upper-cased invite code, got %s", pod.InviteCode)
	}
	if pod.InviteLink != "https://wa.me/628000?text=%23join%20CODE0001" {
		t.Errorf("Unexpected invite link: %s", pod.InviteLink)
	}
	if len(pod.Participants) != 1 || !pod.Participants[0].IsCreator || pod.Participants[0].UserID != "alice" {
		t.Errorf("Expected the creator as sole participant, got %+v", pod.Participants)
	}

	if u := h.get(t, "alice"); !u.HasAchievement("first_pod") || u.FocusCoins != 20 {
		t.Errorf("Expected first_pod unlocked with 20 coins, got %+v", u)
	}
}

func TestPodCreate_InvalidDuration(t *testing.T) {
	h := newHarness(t)
	h.user(t, "alice")

	if _, err := h.pods.Create(context.Background(), "alice", "Alice", 0, "x"); err != domain.ErrInvalidDuration {
		t.Errorf("Expected ErrInvalidDuration, got %v", err)
	}
}

func TestPodCreate_InviteCodeExhausted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.user(t, "alice")

	pods := usecase.NewPodUsecase(h.store, h.sessions, h.rewards, h.notifier, h.timers, usecase.PodOptions{
		NewInviteCode: func() string { return "SAMECODE" },
	}, walog.Noop)

	if _, err := pods.Create(ctx, "alice", "Alice", 25, "one"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := pods.Create(ctx, "alice", "Alice", 25, "two"); err != domain.ErrInviteCodeExhausted {
		t.Errorf("Expected ErrInviteCodeExhausted, got %v", err)
	}
}

func TestPodJoin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.user(t, "alice")
	h.user(t, "bob")

	pod, _ := h.pods.Create(ctx, "alice", "Alice", 50, "Deep Work")

	joined, ok, err := h.pods.JoinByCode(ctx, "code0001", "bob", "Bob")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !ok || len(joined.Participants) != 2 || joined.Participants[1].UserID != "bob" {
		t.Fatalf("Expected Bob to join, got %+v", joined)
	}
	if h.notifier.count("alice", domain.NotifyPodJoined) != 1 {
		t.Error("Expected the creator to hear about the join")
	}

	again, ok, err := h.pods.Join(ctx, pod.ID, "bob", "Bob")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ok || len(again.Participants) != 2 {
		t.Errorf("Expected re-join to be a no-op, got ok=%v participants=%d", ok, len(again.Participants))
	}
	if h.notifier.count("alice", domain.NotifyPodJoined) != 1 {
		t.Error("Re-join must not notify again")
	}

	if _, _, err := h.pods.JoinByCode(ctx, "NOPE", "bob", "Bob"); err != domain.ErrPodNotFound {
		t.Errorf("Expected ErrPodNotFound, got %v", err)
	}
}

func TestPodStart_OnlyCreator(t *testing.T) {
	h := newHarness(t)
	pod := setupPod(t, h)

	if _, err := h.pods.Start(context.Background(), pod.ID, "bob"); err != domain.ErrNotPodCreator {
		t.Errorf("Expected ErrNotPodCreator, got %v", err)
	}
	if _, err := h.pods.Start(context.Background(), "missing", "alice"); err != domain.ErrPodNotFound {
		t.Errorf("Expected ErrPodNotFound, got %v", err)
	}
}

func TestPodStart_StartsEverySession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pod := setupPod(t, h)

	started, err := h.pods.Start(ctx, pod.ID, "alice")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if started.Status != domain.PodActive || started.StartTime == nil || !started.EndTime.Equal(epoch.Add(50*time.Minute)) {
		t.Errorf("Unexpected started pod: %+v", started)
	}

	for _, id := range []string{"alice", "bob"} {
		s, _ := h.sessions.GetActive(ctx, id)
		if s == nil || s.PodID != pod.ID || s.DurationMinutes != 50 {
			t.Errorf("Expected %s in a pod session, got %+v", id, s)
		}
	}
	if h.notifier.count("bob", domain.NotifyPodStarted) != 1 {
		t.Error("Expected Bob to be told the pod started")
	}
	if h.notifier.count("alice", domain.NotifyPodStarted) != 0 {
		t.Error("The creator started the pod and needs no notice")
	}

	if _, err := h.pods.Start(ctx, pod.ID, "alice"); err != domain.ErrPodInvalidState {
		t.Errorf("Expected ErrPodInvalidState on restart, got %v", err)
	}
	h.user(t, "carol")
	if _, _, err := h.pods.Join(ctx, pod.ID, "carol", "Carol"); err != domain.ErrPodAlreadyStarted {
		t.Errorf("Expected ErrPodAlreadyStarted, got %v", err)
	}
}

func TestPodStart_SkipsBusyParticipant(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pod := setupPod(t, h)

	solo, _ := h.sessions.Start(ctx, "bob", 25, "")

	if _, err := h.pods.Start(ctx, pod.ID, "alice"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	s, _ := h.sessions.GetActive(ctx, "bob")
	if s.ID != solo.ID || s.PodID != "" {
		t.Errorf("Expected Bob's solo session untouched, got %+v", s)
	}
	if s, _ := h.sessions.GetActive(ctx, "alice"); s == nil || s.PodID != pod.ID {
		t.Errorf("Expected Alice in the pod session, got %+v", s)
	}
}

func TestPodTimeout_CompletesPod(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pod := setupPod(t, h)

	h.pods.Start(ctx, pod.ID, "alice")
	h.clock.Advance(50 * time.Minute)

	got, _ := h.pods.Get(ctx, pod.ID)
	if got.Status != domain.PodCompleted {
		t.Fatalf("Expected pod completed on timeout, got %s", got.Status)
	}
	for _, id := range []string{"alice", "bob"} {
		if h.notifier.count(id, domain.NotifyPodFinished) != 1 {
			t.Errorf("Expected %s to get the finish notice", id)
		}
		if h.notifier.count(id, domain.NotifySessionTimeUp) != 1 {
			t.Errorf("Expected %s to get the session prompt", id)
		}
	}

	// participants still finish their own sessions, with the pod bonus
	s, _ := h.sessions.GetActive(ctx, "bob")
	res, err := h.sessions.Complete(ctx, s.ID, domain.ActionCompleted, h.sessions.IsEarly(s))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Reward != 15 {
		t.Errorf("Expected 15 coins with the pod bonus, got %d", res.Reward)
	}
	updated, err := h.pods.RecordParticipantAction(ctx, pod.ID, "bob", domain.ActionCompleted)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p := updated.Participant("bob"); !p.Completed || p.Action != domain.ActionCompleted {
		t.Errorf("Expected Bob's action recorded, got %+v", p)
	}

	if _, err := h.pods.Complete(ctx, pod.ID); err != domain.ErrPodInvalidState {
		t.Errorf("Expected ErrPodInvalidState completing twice, got %v", err)
	}
}

func TestPodCancel_Active(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pod := setupPod(t, h)

	h.pods.Start(ctx, pod.ID, "alice")

	if _, err := h.pods.Cancel(ctx, pod.ID, "bob"); err != domain.ErrNotPodCreator {
		t.Errorf("Expected ErrNotPodCreator, got %v", err)
	}

	cancelled, err := h.pods.Cancel(ctx, pod.ID, "alice")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cancelled.Status != domain.PodCancelled {
		t.Errorf("Expected CANCELLED, got %s", cancelled.Status)
	}
	for _, id := range []string{"alice", "bob"} {
		if s, _ := h.sessions.GetActive(ctx, id); s != nil {
			t.Errorf("Expected %s's pod session cancelled, got %+v", id, s)
		}
	}
	if h.notifier.count("bob", domain.NotifyPodCancelled) != 1 {
		t.Error("Expected Bob to be told about the cancel")
	}
	if h.timers.Len() != 0 {
		t.Errorf("Expected no armed timers, got %d", h.timers.Len())
	}

	h.clock.Advance(time.Hour)
	if h.notifier.count("bob", domain.NotifyPodFinished) != 0 {
		t.Error("A cancelled pod must not finish")
	}
	if _, err := h.pods.Cancel(ctx, pod.ID, "alice"); err != domain.ErrPodInvalidState {
		t.Errorf("Expected ErrPodInvalidState, got %v", err)
	}
}

func TestPodStart_FailedFanOutRollsBack(t *testing.T) {
	h := newHarnessWithStore(t, func(s *memory.Store) domain.Store {
		return &failingSessionStore{Store: s, failFor: "bob"}
	})
	ctx := context.Background()
	pod := setupPod(t, h)

	if _, err := h.pods.Start(ctx, pod.ID, "alice"); err == nil {
		t.Fatal("Expected the storage error to surface")
	}

	got, err := h.pods.Get(ctx, pod.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got.Status != domain.PodCancelled {
		t.Errorf("Expected the pod rolled back to CANCELLED, got %s", got.Status)
	}
	if s, _ := h.sessions.GetActive(ctx, "alice"); s != nil {
		t.Errorf("Expected Alice's pod session cancelled, got %+v", s)
	}
	if h.timers.Len() != 0 {
		t.Errorf("Expected no armed timers, got %d", h.timers.Len())
	}
	if active, _ := h.pods.ActiveForUser(ctx, "alice"); active != nil {
		t.Errorf("Expected Alice free to create a new pod, got %+v", active)
	}

	h.clock.Advance(2 * time.Hour)
	if h.notifier.count("alice", domain.NotifyPodFinished) != 0 {
		t.Error("A rolled back pod must not finish")
	}
}

func TestPodCancel_EndsSessionsOfParticipantsWhoLeft(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pod := setupPod(t, h)

	if _, err := h.pods.Start(ctx, pod.ID, "alice"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := h.pods.Leave(ctx, pod.ID, "bob"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if s, _ := h.sessions.GetActive(ctx, "bob"); s == nil || s.PodID != pod.ID {
		t.Fatalf("Expected Bob to keep his pod session after leaving, got %+v", s)
	}

	if _, err := h.pods.Cancel(ctx, pod.ID, "alice"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, id := range []string{"alice", "bob"} {
		if s, _ := h.sessions.GetActive(ctx, id); s != nil {
			t.Errorf("Expected %s's pod session cancelled, got %+v", id, s)
		}
	}
}

func TestPodRecordParticipantAction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pod := setupPod(t, h)

	if _, err := h.pods.RecordParticipantAction(ctx, "missing", "bob", domain.ActionCompleted); err != domain.ErrPodNotFound {
		t.Errorf("Expected ErrPodNotFound, got %v", err)
	}
	h.user(t, "carol")
	if _, err := h.pods.RecordParticipantAction(ctx, pod.ID, "carol", domain.ActionCompleted); err != domain.ErrParticipantNotFound {
		t.Errorf("Expected ErrParticipantNotFound, got %v", err)
	}

	tests := []struct {
		action    domain.SessionAction
		completed bool
	}{
		{domain.ActionContinue, false},
		{domain.ActionBreak, false},
		{domain.ActionCompleted, true},
	}
	for _, tt := range tests {
		updated, err := h.pods.RecordParticipantAction(ctx, pod.ID, "bob", tt.action)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		p := updated.Participant("bob")
		if p == nil || p.Action != tt.action || p.Completed != tt.completed {
			t.Errorf("%s: expected completed=%v, got %+v", tt.action, tt.completed, p)
		}
	}
}

func TestPodLeave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pod := setupPod(t, h)

	if _, err := h.pods.Leave(ctx, pod.ID, "alice"); err != domain.ErrCreatorCannotLeave {
		t.Errorf("Expected ErrCreatorCannotLeave, got %v", err)
	}

	left, err := h.pods.Leave(ctx, pod.ID, "bob")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if left.Participant("bob") != nil || len(left.Participants) != 1 {
		t.Errorf("Expected Bob gone, got %+v", left.Participants)
	}

	if _, err := h.pods.Leave(ctx, pod.ID, "bob"); err != domain.ErrParticipantNotFound {
		t.Errorf("Expected ErrParticipantNotFound, got %v", err)
	}
}

func TestPodActiveForUserAndRemaining(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pod := setupPod(t, h)

	active, err := h.pods.ActiveForUser(ctx, "bob")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if active == nil || active.ID != pod.ID {
		t.Fatalf("Expected Bob's waiting pod, got %+v", active)
	}
	if left, _ := h.pods.Remaining(ctx, pod.ID); left != nil {
		t.Errorf("A waiting pod has no remaining time, got %+v", left)
	}

	h.pods.Start(ctx, pod.ID, "alice")
	h.clock.Advance(20 * time.Minute)

	left, err := h.pods.Remaining(ctx, pod.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if left == nil || left.Minutes != 30 || left.Seconds != 0 {
		t.Errorf("Expected 30:00 left, got %+v", left)
	}
}

func TestPodRestore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	pod := setupPod(t, h)

	h.pods.Start(ctx, pod.ID, "alice")
	h.timers.Stop()

	pods := usecase.NewPodUsecase(h.store, h.sessions, h.rewards, h.notifier, h.timers, usecase.PodOptions{}, walog.Noop)
	n, err := pods.Restore(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 restored pod, got %d", n)
	}

	h.clock.Advance(50 * time.Minute)
	if got, _ := pods.Get(ctx, pod.ID); got.Status != domain.PodCompleted {
		t.Errorf("Expected the restored timer to complete the pod, got %s", got.Status)
	}
}
