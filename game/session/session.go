package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Session tracks the recurring fishing window and holds short-lived
// per-user cooldowns that do not survive a restart. Persistent cooldowns
// live in the cooldown package; these are deliberately ephemeral.
type Session struct {
	mu          sync.Mutex
	clock       Clock
	openMinute  int
	closeMinute int
	open        bool
	expiries    map[string]time.Time
	logger      *zap.Logger
}

// New creates a Session. The window opens at openMinute and closes at
// closeMinute of every hour; a closeMinute below openMinute wraps past
// the top of the hour.
func New(openMinute, closeMinute int, logger *zap.Logger) *Session {
	s := &Session{
		clock:       realClock{},
		openMinute:  openMinute,
		closeMinute: closeMinute,
		expiries:    make(map[string]time.Time),
		logger:      logger,
	}
	s.open = s.windowAt(s.clock.Now())
	return s
}

// SetClock replaces the clock. Test use only.
func (s *Session) SetClock(c Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
	s.open = s.windowAt(c.Now())
}

func (s *Session) windowAt(t time.Time) bool {
	m := t.Minute()
	if s.openMinute <= s.closeMinute {
		return m >= s.openMinute && m < s.closeMinute
	}
	return m >= s.openMinute || m < s.closeMinute
}

// WindowOpen reports whether limited-pool fishing is currently allowed.
func (s *Session) WindowOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Tick recomputes the window state and reports whether it flipped. The
// scheduler calls this once a second; it also sweeps expired cooldowns.
func (s *Session) Tick() (changed, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	next := s.windowAt(now)
	changed = next != s.open
	s.open = next
	if changed {
		s.logger.Info("fishing window changed", zap.Bool("open", next))
	}
	for key, exp := range s.expiries {
		if !now.Before(exp) {
			delete(s.expiries, key)
		}
	}
	return changed, next
}

// TryAcquire arms the named ephemeral cooldown if it is not already
// running. It returns false with the remaining wait when still armed.
func (s *Session) TryAcquire(key string, d time.Duration) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	if exp, ok := s.expiries[key]; ok && now.Before(exp) {
		return false, exp.Sub(now)
	}
	s.expiries[key] = now.Add(d)
	return true, 0
}

// Release clears an ephemeral cooldown early.
func (s *Session) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expiries, key)
}
