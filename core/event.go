package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the typed events a run emits. The set mirrors the
// wire protocol: every event is serialized as a small JSON object with a
// "type" discriminator and only the fields relevant to that type.
type EventType string

const (
	// EventStatus carries a short progress note (fallbacks, rotations).
	EventStatus EventType = "status"
	// EventToolStart announces a tool dispatch with its parameters.
	EventToolStart EventType = "tool_start"
	// EventToolResult carries the outcome of a completed tool dispatch.
	EventToolResult EventType = "tool_result"
	// EventChunk carries a fragment of the streamed answer text.
	EventChunk EventType = "chunk"
	// EventPlanning indicates plan construction is in progress.
	EventPlanning EventType = "planning"
	// EventPlan publishes the goal and ordered step descriptions.
	EventPlan EventType = "plan"
	// EventThinking carries an intermediate model thought.
	EventThinking EventType = "thinking"
	// EventReflection carries the model's assessment after a tool result.
	EventReflection EventType = "reflection"
	// EventPhase announces a loop phase transition.
	EventPhase EventType = "phase"
	// EventDone terminates a successful run with the final response.
	EventDone EventType = "done"
	// EventError terminates a failed run with a human-readable cause.
	EventError EventType = "error"
)

// Phase identifies the loop state machine phase an event belongs to.
type Phase string

const (
	// PhasePlanning is the initial plan construction phase.
	PhasePlanning Phase = "planning"
	// PhaseExecuting covers model action selection and tool dispatch.
	PhaseExecuting Phase = "executing"
	// PhaseReflecting covers goal assessment after a tool result.
	PhaseReflecting Phase = "reflecting"
	// PhaseSynthesizing covers final answer production.
	PhaseSynthesizing Phase = "synthesizing"
	// PhaseDone is the terminal phase.
	PhaseDone Phase = "done"
)

// Event is the unit of communication between a run and its client. Events
// are emitted in strict order and must be treated as immutable after
// emission. Only the fields relevant to the Type are populated; the rest
// are omitted from the wire form.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Phase      Phase          `json:"phase,omitempty"`
	Content    string         `json:"content,omitempty"`
	Tool       string         `json:"tool,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	Result     string         `json:"result,omitempty"`
	Status     string         `json:"status,omitempty"`
	DurationMS int64          `json:"duration_ms,omitempty"`
	Goal       string         `json:"goal,omitempty"`
	Steps      []string       `json:"steps,omitempty"`
	Iterations int            `json:"iterations,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`

	// Execution carries the full record for tool_result events so internal
	// consumers (persistence) do not need to rebuild it from wire fields.
	Execution *ToolExecution `json:"-"`
}

func newEvent(t EventType) Event {
	return Event{ID: NewID(), Type: t, Timestamp: time.Now().UTC()}
}

// NewStatusEvent creates a short progress note event.
func NewStatusEvent(content string) Event {
	e := newEvent(EventStatus)
	e.Content = content
	return e
}

// NewPhaseEvent announces a transition into the given phase with a short
// progress note.
func NewPhaseEvent(phase Phase, content string) Event {
	e := newEvent(EventPhase)
	e.Phase = phase
	e.Content = content
	return e
}

// NewPlanningEvent signals that plan construction is underway.
func NewPlanningEvent(content string) Event {
	e := newEvent(EventPlanning)
	e.Content = content
	return e
}

// NewPlanEvent publishes a constructed plan's goal and step descriptions.
func NewPlanEvent(goal string, steps []string) Event {
	e := newEvent(EventPlan)
	e.Goal = goal
	e.Steps = append([]string(nil), steps...)
	return e
}

// NewThinkingEvent carries an intermediate thought produced by the model.
func NewThinkingEvent(content string) Event {
	e := newEvent(EventThinking)
	e.Content = content
	return e
}

// NewReflectionEvent carries the reflection produced after a tool result.
func NewReflectionEvent(content string) Event {
	e := newEvent(EventReflection)
	e.Content = content
	return e
}

// NewChunkEvent carries one fragment of streamed answer text.
func NewChunkEvent(content string) Event {
	e := newEvent(EventChunk)
	e.Content = content
	return e
}

// NewToolStartEvent announces a tool dispatch before execution begins.
func NewToolStartEvent(tool string, params map[string]any) Event {
	e := newEvent(EventToolStart)
	e.Tool = tool
	e.Params = params
	return e
}

// NewToolResultEvent records the outcome of a completed tool dispatch. The
// execution record is attached in full for internal consumers; the wire
// result is clamped.
func NewToolResultEvent(exec *ToolExecution) Event {
	e := newEvent(EventToolResult)
	e.Tool = exec.Tool
	e.Result = ClampResult(exec.Result)
	e.Status = string(exec.Status)
	e.DurationMS = exec.DurationMS
	e.Execution = exec
	return e
}

// NewDoneEvent terminates a successful run with the final response text and
// the number of loop iterations consumed.
func NewDoneEvent(response string, iterations int) Event {
	e := newEvent(EventDone)
	e.Phase = PhaseDone
	e.Content = response
	e.Iterations = iterations
	return e
}

// NewErrorEvent terminates a failed run with a human-readable cause.
func NewErrorEvent(message string) Event {
	e := newEvent(EventError)
	e.Content = message
	return e
}

// NewID generates a unique identifier for events.
func NewID() string { return uuid.NewString() }

// IsTerminal reports whether this event ends the run. Exactly one terminal
// event is emitted per run and nothing follows it.
func (e Event) IsTerminal() bool { return e.Type == EventDone || e.Type == EventError }
