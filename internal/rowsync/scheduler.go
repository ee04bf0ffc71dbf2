package rowsync

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler keeps at most one armed timer per key. Arming a key replaces its
// previous timer; a replaced or cancelled timer never runs its func.
type Scheduler struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	timers map[string]*armed
}

type armed struct {
	key   string
	timer clockwork.Timer
}

func NewScheduler(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock, timers: make(map[string]*armed)}
}

// Arm runs fn after d unless key is re-armed or cancelled first.
func (s *Scheduler) Arm(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.timers[key]; ok {
		prev.timer.Stop()
	}
	a := &armed{key: key}
	s.timers[key] = a
	a.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if s.timers[a.key] != a {
			s.mu.Unlock()
			return
		}
		delete(s.timers, a.key)
		s.mu.Unlock()
		fn()
	})
}

// Cancel disarms key and reports whether a timer was pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.timers[key]
	if !ok {
		return false
	}
	a.timer.Stop()
	delete(s.timers, key)
	return true
}

func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

// Rekey moves a pending timer to a new key.
func (s *Scheduler) Rekey(oldKey, newKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.timers[oldKey]
	if !ok {
		return
	}
	delete(s.timers, oldKey)
	if prev, ok := s.timers[newKey]; ok {
		prev.timer.Stop()
	}
	a.key = newKey
	s.timers[newKey] = a
}
