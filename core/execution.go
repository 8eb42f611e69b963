package core

import "time"

// ExecutionStatus is the terminal state of a tool dispatch.
type ExecutionStatus string

const (
	// StatusSuccess marks a dispatch whose tool returned without error.
	StatusSuccess ExecutionStatus = "success"
	// StatusError marks a dispatch that failed, timed out or hit an
	// unknown tool. The failure text is preserved in Result.
	StatusError ExecutionStatus = "error"
)

// ToolExecution is the audit record of exactly one tool dispatch. The
// dispatcher creates it and it is never mutated afterwards; failures are
// recorded with StatusError rather than surfaced as errors.
type ToolExecution struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id,omitempty"`
	Tool       string          `json:"tool"`
	Params     map[string]any  `json:"params"`
	Result     string          `json:"result"`
	Status     ExecutionStatus `json:"status"`
	DurationMS int64           `json:"duration_ms"`
	StartedAt  time.Time       `json:"started_at"`
}

// Succeeded reports whether the dispatch completed without error.
func (e *ToolExecution) Succeeded() bool { return e.Status == StatusSuccess }

// ResultClamp bounds a tool result wherever it leaves the dispatch boundary:
// event payloads and stored audit records. The in-loop observation keeps the
// same bound so context growth stays predictable.
const ResultClamp = 2000

// ClampResult truncates a tool result to ResultClamp runes.
func ClampResult(result string) string {
	runes := []rune(result)
	if len(runes) <= ResultClamp {
		return result
	}
	return string(runes[:ResultClamp])
}
