// Package memory is a process-local implementation of domain.Store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fardannozami/focuspod/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]*domain.User
	external map[string]string // external id -> user id
	sessions map[string]*domain.FocusSession
	pods     map[string]*domain.Pod
	codes    map[string]string // upper-cased invite code -> pod id
	stats    map[string]*domain.UserStats
}

var _ domain.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*domain.User),
		external: make(map[string]string),
		sessions: make(map[string]*domain.FocusSession),
		pods:     make(map[string]*domain.Pod),
		codes:    make(map[string]string),
		stats:    make(map[string]*domain.UserStats),
	}
}

// User methods

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.external[externalID]
	if !ok {
		return nil, nil
	}
	return copyUser(s.users[id]), nil
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.users[user.ID] = copyUser(user)
	if user.ExternalID != "" {
		s.external[user.ExternalID] = user.ID
	}
	return nil
}

func (s *Store) UpdateUserName(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		u.Name = name
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) IncrementUser(ctx context.Context, id string, delta domain.UserDelta) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	u.FocusCoins += delta.FocusCoins
	u.TotalPomodoros += delta.TotalPomodoros
	u.TotalFocusMinutes += delta.TotalFocusMinutes
	u.CompletedTasks += delta.CompletedTasks
	return copyUser(u), nil
}

func (s *Store) SetStreak(ctx context.Context, id string, current, best int, lastActive time.Time) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	u.CurrentStreak = current
	u.BestStreak = best
	u.LastActiveDate = lastActive
	return copyUser(u), nil
}

func (s *Store) AddAchievement(ctx context.Context, id, achievementID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.HasAchievement(achievementID) {
		return false, nil
	}
	u.Achievements = append(u.Achievements, achievementID)
	return true, nil
}

// Session methods

func (s *Store) CreateSession(ctx context.Context, session *domain.FocusSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.EndTime == nil {
		for _, fs := range s.sessions {
			if fs.UserID == session.UserID && fs.EndTime == nil {
				return domain.ErrSessionAlreadyActive
			}
		}
	}
	s.sessions[session.ID] = copySession(session)
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fs, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(fs), nil
}

func (s *Store) GetActiveSession(ctx context.Context, userID string) (*domain.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, fs := range s.sessions {
		if fs.UserID == userID && fs.EndTime == nil {
			return copySession(fs), nil
		}
	}
	return nil, nil
}

func (s *Store) ListOpenSessions(ctx context.Context) ([]*domain.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.FocusSession
	for _, fs := range s.sessions {
		if fs.EndTime == nil {
			out = append(out, copySession(fs))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *Store) FinishSession(ctx context.Context, id string, finish domain.SessionFinish) (*domain.FocusSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, ok := s.sessions[id]
	if !ok || fs.EndTime != nil {
		return nil, nil
	}
	end := finish.EndTime
	fs.EndTime = &end
	fs.Completed = finish.Completed
	fs.Action = finish.Action
	fs.Reward = finish.Reward
	return copySession(fs), nil
}

// Pod methods

func (s *Store) CreatePod(ctx context.Context, pod *domain.Pod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.ToUpper(pod.InviteCode)
	if _, taken := s.codes[code]; taken {
		return domain.ErrInviteCodeTaken
	}
	if pod.CreatedAt.IsZero() {
		pod.CreatedAt = time.Now()
	}
	s.pods[pod.ID] = copyPod(pod)
	s.codes[code] = pod.ID
	return nil
}

func (s *Store) GetPod(ctx context.Context, id string) (*domain.Pod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pods[id]
	if !ok {
		return nil, nil
	}
	return copyPod(p), nil
}

func (s *Store) GetPodByInviteCode(ctx context.Context, code string) (*domain.Pod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.codes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, nil
	}
	return copyPod(s.pods[id]), nil
}

func (s *Store) TransitionPod(ctx context.Context, id string, from []domain.PodStatus, to domain.PodStatus, times domain.PodTimes) (*domain.Pod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pods[id]
	if !ok || !statusIn(p.Status, from) {
		return nil, nil
	}
	p.Status = to
	if times.StartTime != nil {
		t := *times.StartTime
		p.StartTime = &t
	}
	if times.EndTime != nil {
		t := *times.EndTime
		p.EndTime = &t
	}
	return copyPod(p), nil
}

func (s *Store) AddParticipant(ctx context.Context, podID string, participant domain.PodParticipant) (*domain.Pod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pods[podID]
	if !ok {
		return nil, nil
	}
	if p.Participant(participant.UserID) == nil {
		p.Participants = append(p.Participants, participant)
	}
	return copyPod(p), nil
}

func (s *Store) RemoveParticipant(ctx context.Context, podID, userID string) (*domain.Pod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pods[podID]
	if !ok {
		return nil, nil
	}
	kept := p.Participants[:0]
	for _, pp := range p.Participants {
		if pp.UserID != userID {
			kept = append(kept, pp)
		}
	}
	p.Participants = kept
	return copyPod(p), nil
}

func (s *Store) SetParticipantAction(ctx context.Context, podID, userID string, action domain.SessionAction, completed bool) (*domain.Pod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pods[podID]
	if !ok {
		return nil, nil
	}
	if pp := p.Participant(userID); pp != nil {
		pp.Action = action
		pp.Completed = completed
	}
	return copyPod(p), nil
}

func (s *Store) ListPodsForUser(ctx context.Context, userID string, statuses ...domain.PodStatus) ([]*domain.Pod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Pod
	for _, p := range s.pods {
		if p.Participant(userID) == nil {
			continue
		}
		if len(statuses) > 0 && !statusIn(p.Status, statuses) {
			continue
		}
		out = append(out, copyPod(p))
	}
	sortPods(out)
	return out, nil
}

func (s *Store) ListPodsByStatus(ctx context.Context, status domain.PodStatus) ([]*domain.Pod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Pod
	for _, p := range s.pods {
		if p.Status == status {
			out = append(out, copyPod(p))
		}
	}
	sortPods(out)
	return out, nil
}

func (s *Store) CountPodsCreatedBy(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.pods {
		if p.CreatorID == userID {
			n++
		}
	}
	return n, nil
}

// Stats methods

func (s *Store) GetStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stats[userID]
	if !ok {
		return &domain.UserStats{UserID: userID}, nil
	}
	cp := *st
	return &cp, nil
}

func (s *Store) IncrementStats(ctx context.Context, userID string, delta domain.StatsDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.stats[userID]
	if !ok {
		st = &domain.UserStats{UserID: userID}
		s.stats[userID] = st
	}
	st.TodayPomodoros += delta.Pomodoros
	st.TodayFocusMinutes += delta.FocusMinutes
	st.TodayTasks += delta.Tasks
	st.TodayCoins += delta.Coins
	st.WeekPomodoros += delta.Pomodoros
	st.WeekFocusMinutes += delta.FocusMinutes
	st.WeekTasks += delta.Tasks
	st.WeekCoins += delta.Coins
	return nil
}

func (s *Store) ResetDailyStats(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.stats {
		st.TodayPomodoros = 0
		st.TodayFocusMinutes = 0
		st.TodayTasks = 0
		st.TodayCoins = 0
	}
	return nil
}

func (s *Store) ResetWeeklyStats(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.stats {
		st.WeekPomodoros = 0
		st.WeekFocusMinutes = 0
		st.WeekTasks = 0
		st.WeekCoins = 0
	}
	return nil
}

func statusIn(status domain.PodStatus, set []domain.PodStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

func sortPods(pods []*domain.Pod) {
	sort.Slice(pods, func(i, j int) bool { return pods[i].CreatedAt.Before(pods[j].CreatedAt) })
}

func copyUser(u *domain.User) *domain.User {
	cp := *u
	cp.Achievements = append([]string(nil), u.Achievements...)
	return &cp
}

func copySession(fs *domain.FocusSession) *domain.FocusSession {
	cp := *fs
	if fs.EndTime != nil {
		t := *fs.EndTime
		cp.EndTime = &t
	}
	return &cp
}

func copyPod(p *domain.Pod) *domain.Pod {
	cp := *p
	cp.Participants = append([]domain.PodParticipant(nil), p.Participants...)
	if p.StartTime != nil {
		t := *p.StartTime
		cp.StartTime = &t
	}
	if p.EndTime != nil {
		t := *p.EndTime
		cp.EndTime = &t
	}
	return &cp
}
