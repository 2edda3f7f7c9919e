package timer

import (
	"sync"
	"time"

	walog "go.mau.fi/whatsmeow/util/log"
)

// Scheduler keeps at most one pending callback per id.
type Scheduler struct {
	clock Clock
	log   walog.Logger

	mu      sync.Mutex
	seq     uint64
	entries map[string]entry
}

type entry struct {
	token  uint64
	handle Handle
}

func NewScheduler(clock Clock, logger walog.Logger) *Scheduler {
	return &Scheduler{
		clock:   clock,
		log:     logger,
		entries: make(map[string]entry),
	}
}

func (s *Scheduler) Clock() Clock {
	return s.clock
}

// Arm schedules fn to run after delay, replacing any callback already armed under id.
// A non-positive delay fires on the next tick.
func (s *Scheduler) Arm(id string, delay time.Duration, fn func()) {
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[id]; ok {
		old.handle.Stop()
	}
	s.seq++
	token := s.seq
	handle := s.clock.AfterFunc(delay, func() { s.fire(id, token, fn) })
	s.entries[id] = entry{token: token, handle: handle}
	s.log.Debugf("Armed %s in %s", id, delay)
}

// Disarm cancels the callback armed under id and reports whether one was pending.
func (s *Scheduler) Disarm(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.handle.Stop()
	delete(s.entries, id)
	s.log.Debugf("Disarmed %s", id)
	return true
}

func (s *Scheduler) Armed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop disarms everything. Used on shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		e.handle.Stop()
		delete(s.entries, id)
	}
}

func (s *Scheduler) fire(id string, token uint64, fn func()) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok || e.token != token {
		// superseded or disarmed after the underlying timer already fired
		s.mu.Unlock()
		return
	}
	delete(s.entries, id)
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("Deferred callback %s panicked: %v", id, r)
		}
	}()
	fn()
}
