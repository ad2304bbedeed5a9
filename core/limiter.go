package core

import (
	"fmt"
	"sync"
)

// IterationLimiter enforces the maximum number of model calls a single run
// may perform.
type IterationLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewIterationLimiter creates a new limiter with a max number of calls.
// If max <= 0, unlimited calls are allowed.
func NewIterationLimiter(max int) *IterationLimiter {
	return &IterationLimiter{max: max}
}

// Increment reserves one more model call. It returns an error wrapping
// ErrIterationBudgetExceeded when the reservation would exceed the ceiling;
// the counter is not advanced in that case.
func (l *IterationLimiter) Increment() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max > 0 && l.count >= l.max {
		return fmt.Errorf("%w: %d model calls", ErrIterationBudgetExceeded, l.max)
	}
	l.count++

	return nil
}

// Count returns the current number of calls made.
func (l *IterationLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Remaining returns how many calls are left before hitting the limit.
func (l *IterationLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max <= 0 {
		return -1 // unlimited
	}

	return l.max - l.count
}
