package rewind

import (
	"sync"
	"time"
)

// Throttle turns frequent checkpoint requests into at most one commit per
// window. A zero window commits on every Mark
type Throttle struct {
	commit func()
	last   time.Time
	window time.Duration
	mu     sync.Mutex
}

// NewThrottle returns a Throttle that calls commit when a Mark is let through
func NewThrottle(window time.Duration, commit func()) *Throttle {
	return &Throttle{
		commit: commit,
		window: window,
	}
}

// Mark commits if the window has elapsed since the last commit it let
// through, and reports whether it did
func (t *Throttle) Mark(now time.Time) bool {
	t.mu.Lock()
	if t.window > 0 && !t.last.IsZero() && now.Sub(t.last) < t.window {
		t.mu.Unlock()
		return false
	}
	t.last = now
	t.mu.Unlock()

	t.commit()
	return true
}

// Window returns the configured throttle window
func (t *Throttle) Window() time.Duration {
	return t.window
}
