package security

import (
	"sync"
	"time"
)

// RateLimiter enforces a sliding-window request budget per identifier
// (session id or client address). It is safe for concurrent use.
type RateLimiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	requests map[string][]time.Time
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing max requests per window.
// Non-positive arguments fall back to 60 requests per minute.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		max = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		max:      max,
		window:   window,
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow records one request for the identifier and reports whether it fits
// the budget. Rejected requests are not recorded.
func (r *RateLimiter) Allow(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := r.pruneLocked(id)
	if len(active) >= r.max {
		return false
	}
	r.requests[id] = append(active, r.now())
	return true
}

// Remaining returns how many requests the identifier has left in the
// current window.
func (r *RateLimiter) Remaining(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	left := r.max - len(r.pruneLocked(id))
	if left < 0 {
		return 0
	}
	return left
}

// Limit returns the configured budget per window.
func (r *RateLimiter) Limit() int { return r.max }

func (r *RateLimiter) pruneLocked(id string) []time.Time {
	cutoff := r.now().Add(-r.window)
	active := r.requests[id][:0]
	for _, t := range r.requests[id] {
		if t.After(cutoff) {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		delete(r.requests, id)
		return nil
	}
	r.requests[id] = active
	return active
}
