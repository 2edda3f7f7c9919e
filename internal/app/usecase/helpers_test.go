package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	walog "go.mau.fi/whatsmeow/util/log"

	"github.com/fardannozami/focuspod/internal/app/timer"
	"github.com/fardannozami/focuspod/internal/app/usecase"
	"github.com/fardannozami/focuspod/internal/domain"
	"github.com/fardannozami/focuspod/internal/infra/memory"
)

// Tuesday morning; streak tests step days from here.
var epoch = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type sent struct {
	userID string
	n      domain.Notification
}

// mockNotifier records every notification and can be told to fail.
type mockNotifier struct {
	mu   sync.Mutex
	sent []sent
	fail bool
}

func (m *mockNotifier) Notify(ctx context.Context, userID string, n domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("transport down")
	}
	m.sent = append(m.sent, sent{userID: userID, n: n})
	return nil
}

func (m *mockNotifier) count(userID string, kind domain.NotificationKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.userID == userID && s.n.Kind == kind {
			n++
		}
	}
	return n
}

type harness struct {
	store    *memory.Store
	clock    *timer.FakeClock
	timers   *timer.Scheduler
	notifier *mockNotifier
	rewards  *usecase.RewardUsecase
	sessions *usecase.SessionUsecase
	pods     *usecase.PodUsecase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, func(s *memory.Store) domain.Store { return s })
}

// newHarnessWithStore lets a test put a wrapper between the usecases and the
// memory store. h.store stays the unwrapped store for seeding and assertions.
func newHarnessWithStore(t *testing.T, wrap func(*memory.Store) domain.Store) *harness {
	t.Helper()

	h := &harness{
		store:    memory.NewStore(),
		clock:    timer.NewFakeClock(epoch),
		notifier: &mockNotifier{},
	}
	store := wrap(h.store)
	h.timers = timer.NewScheduler(h.clock, walog.Noop)
	h.rewards = usecase.NewRewardUsecase(store, h.notifier, h.clock, walog.Noop)
	h.sessions = usecase.NewSessionUsecase(store, h.rewards, h.notifier, h.timers, usecase.SessionOptions{
		BaseReward:         10,
		MaxDurationMinutes: 180,
	}, walog.Noop)

	codes := 0
	h.pods = usecase.NewPodUsecase(store, h.sessions, h.rewards, h.notifier, h.timers, usecase.PodOptions{
		InviteLinkBase:     "https://wa.me/628000?text=",
		MaxDurationMinutes: 180,
		NewInviteCode: func() string {
			codes++
			return fmt.Sprintf("code%04d", codes)
		},
	}, walog.Noop)
	return h
}

func (h *harness) user(t *testing.T, id string) *domain.User {
	t.Helper()
	u := &domain.User{ID: id, ExternalID: "ext-" + id, Name: "User " + id, CreatedAt: h.clock.Now()}
	if err := h.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func (h *harness) get(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := h.store.GetUser(context.Background(), id)
	if err != nil || u == nil {
		t.Fatalf("Failed to load user %s: %v", id, err)
	}
	return u
}

// failingSessionStore fails CreateSession for one user, like a full disk would.
type failingSessionStore struct {
	*memory.Store
	failFor string
}

func (s *failingSessionStore) CreateSession(ctx context.Context, session *domain.FocusSession) error {
	if session.UserID == s.failFor {
		return errors.New("disk full")
	}
	return s.Store.CreateSession(ctx, session)
}
