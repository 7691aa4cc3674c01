package errors

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// StickyError tracks a streak of failures and latches the latest one once more than maxRetries
// of them have arrived back to back, each within timeout of the one before. A success, or a gap
// longer than timeout, ends the streak. A non-positive timeout never latches.
type StickyError struct {
	timeout    time.Duration
	maxRetries int
	clock      clockwork.Clock

	mu     sync.RWMutex
	last   error
	lastAt time.Time
	streak int
}

// NewStickyError returns a StickyError on the wall clock.
func NewStickyError(timeout time.Duration, maxRetries int) *StickyError {
	return NewStickyErrorWithClock(timeout, maxRetries, clockwork.NewRealClock())
}

// NewStickyErrorWithClock returns a StickyError on the given clock.
func NewStickyErrorWithClock(
	timeout time.Duration, maxRetries int, clock clockwork.Clock,
) *StickyError {
	return &StickyError{timeout: timeout, maxRetries: maxRetries, clock: clock}
}

func (e *StickyError) fresh(now time.Time) bool {
	return e.timeout > 0 && !now.After(e.lastAt.Add(e.timeout))
}

func (e *StickyError) latched(now time.Time) error {
	if e.last != nil && e.streak >= e.maxRetries && e.fresh(now) {
		return e.last
	}
	return nil
}

// Error returns the latched error, or nil. It is safe to call on a nil StickyError.
func (e *StickyError) Error() error {
	if e == nil {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latched(e.clock.Now())
}

// SetError reports the outcome of one attempt, nil meaning success, and returns the latched error
// afterwards.
func (e *StickyError) SetError(err error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if err != nil && e.last != nil && e.fresh(now) {
		e.streak++
	} else {
		e.streak = 0
	}
	e.last, e.lastAt = err, now
	return e.latched(now)
}

// Retries returns the length of the current streak, not counting its first failure.
func (e *StickyError) Retries() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.streak
}
