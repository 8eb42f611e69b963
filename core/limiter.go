package core

import (
	"fmt"
	"sync"
)

// IterationLimiter caps the number of reasoning iterations per run. The
// agent loop increments it once per iteration; when the cap is hit the run
// moves to synthesis instead of looping further.
type IterationLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewIterationLimiter creates a limiter allowing max iterations.
// If max == 0, iterations are unlimited.
func NewIterationLimiter(max int) *IterationLimiter {
	return &IterationLimiter{max: max}
}

// Increment counts one iteration. A rejected increment does not count, so
// Count never exceeds the cap.
func (il *IterationLimiter) Increment() error {
	il.mu.Lock()
	defer il.mu.Unlock()

	if il.max > 0 && il.count >= il.max {
		return fmt.Errorf("exceeded max iterations: %d", il.max)
	}
	il.count++

	return nil
}

// Count returns the number of iterations consumed so far.
func (il *IterationLimiter) Count() int {
	il.mu.Lock()
	defer il.mu.Unlock()

	return il.count
}

// Remaining returns how many iterations are left, or -1 when unlimited.
func (il *IterationLimiter) Remaining() int {
	il.mu.Lock()
	defer il.mu.Unlock()

	if il.max == 0 {
		return -1
	}

	return il.max - il.count
}
