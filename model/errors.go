package model

import (
	"errors"
	"fmt"
	"time"
)

// retryableStatuses are the HTTP status codes treated as transient.
var retryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// ProviderError describes a failed provider call. Retryable errors are
// retried with backoff and may trigger fallback rotation; non-retryable
// errors surface immediately.
type ProviderError struct {
	Provider   string
	Model      string
	Status     int
	Message    string
	Retryable  bool
	RetryAfter time.Duration // server-supplied delay hint, 0 when absent
}

// NewProviderError builds a ProviderError, deriving retryability from the
// HTTP status code.
func NewProviderError(provider, model string, status int, message string) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Model:     model,
		Status:    status,
		Message:   message,
		Retryable: retryableStatuses[status],
	}
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// IsRetryable reports whether err is a ProviderError marked retryable.
// Unknown error types are not retried.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// RetryAfterHint extracts the server-supplied delay hint from err, or 0.
func RetryAfterHint(err error) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}
