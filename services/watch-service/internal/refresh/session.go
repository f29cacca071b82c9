package refresh

import (
	"sync"
	"time"
)

// Session holds the auto-refresh flag of one viewer. It starts Idle and only
// changes through Toggle.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	active  bool
	changed chan struct{}
}

func NewSession(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now().UTC(), changed: make(chan struct{}, 1)}
}

// Toggle flips the flag and returns the new value. The loop observes it at
// its next cycle boundary.
func (s *Session) Toggle() bool {
	s.mu.Lock()
	s.active = !s.active
	active := s.active
	s.mu.Unlock()
	select {
	case s.changed <- struct{}{}:
	default:
	}
	return active
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Changed is signalled after every Toggle. Signals coalesce.
func (s *Session) Changed() <-chan struct{} {
	return s.changed
}

func (s *Session) drain() {
	select {
	case <-s.changed:
	default:
	}
}
