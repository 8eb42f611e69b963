package model

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls backoff between retried provider calls. The zero
// value is not usable; construct with DefaultRetryPolicy and override
// fields as needed.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration
	// MaxDelay caps every computed delay, including server-supplied hints.
	MaxDelay time.Duration
	// Factor is the exponential growth factor per attempt.
	Factor float64
	// Jitter returns a value in [0, 1); it scales each computed delay into
	// [0.5, 1.0) of its nominal value.
	Jitter func() float64
}

// DefaultRetryPolicy mirrors the production defaults: up to 5 retries,
// 1s base, 30s ceiling, doubling with jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Factor:     2.0,
		Jitter:     rand.Float64,
	}
}

// Delay computes the backoff before retrying attempt (0-based). A positive
// server hint is honored but clamped to MaxDelay; hinted delays skip
// jitter.
func (p RetryPolicy) Delay(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		if hint > p.MaxDelay {
			return p.MaxDelay
		}
		return hint
	}

	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt))
	if max := float64(p.MaxDelay); d > max {
		d = max
	}
	if p.Jitter != nil {
		d *= 0.5 + 0.5*p.Jitter()
	}
	return time.Duration(d)
}
