package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEvent_Constructors(t *testing.T) {
	st := NewStatusEvent("detecting intent")
	if st.Type != EventStatus || st.Content != "detecting intent" || st.ID == "" || st.Timestamp.IsZero() {
		t.Fatalf("NewStatusEvent malformed: %+v", st)
	}

	ph := NewPhaseEvent(PhaseExecuting, "Starting execution...")
	if ph.Type != EventPhase || ph.Phase != PhaseExecuting || ph.Content == "" {
		t.Fatalf("NewPhaseEvent malformed: %+v", ph)
	}

	pl := NewPlanEvent("ship it", []string{"build", "test"})
	if pl.Type != EventPlan || pl.Goal != "ship it" || len(pl.Steps) != 2 {
		t.Fatalf("NewPlanEvent malformed: %+v", pl)
	}

	ch := NewChunkEvent("hello")
	if ch.Type != EventChunk || ch.Content != "hello" {
		t.Fatalf("NewChunkEvent malformed: %+v", ch)
	}

	ts := NewToolStartEvent("shell_tool", map[string]any{"command": "ls"})
	if ts.Type != EventToolStart || ts.Tool != "shell_tool" || ts.Params["command"] != "ls" {
		t.Fatalf("NewToolStartEvent malformed: %+v", ts)
	}

	done := NewDoneEvent("final answer", 3)
	if done.Type != EventDone || done.Content != "final answer" || done.Iterations != 3 {
		t.Fatalf("NewDoneEvent malformed: %+v", done)
	}

	ee := NewErrorEvent("boom")
	if ee.Type != EventError || ee.Content != "boom" {
		t.Fatalf("NewErrorEvent malformed: %+v", ee)
	}
}

func TestEvent_ToolResultCarriesExecution(t *testing.T) {
	exec := &ToolExecution{
		ID:         NewID(),
		SessionID:  "sess-1",
		Tool:       "file_tool",
		Params:     map[string]any{"action": "read", "path": "notes.txt"},
		Result:     "contents",
		Status:     StatusSuccess,
		DurationMS: 12,
		StartedAt:  time.Now().UTC(),
	}

	ev := NewToolResultEvent(exec)
	if ev.Type != EventToolResult || ev.Tool != "file_tool" || ev.Result != "contents" {
		t.Fatalf("NewToolResultEvent malformed: %+v", ev)
	}
	if ev.Status != string(StatusSuccess) || ev.DurationMS != 12 {
		t.Fatalf("status/duration not copied: %+v", ev)
	}
	if ev.Execution != exec {
		t.Fatal("expected execution record to be attached")
	}

	// Execution must not leak onto the wire.
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["Execution"]; ok {
		t.Error("execution record should be excluded from JSON")
	}
}

func TestEvent_IsTerminal(t *testing.T) {
	if !NewDoneEvent("x", 1).IsTerminal() {
		t.Error("done event should be terminal")
	}
	if !NewErrorEvent("x").IsTerminal() {
		t.Error("error event should be terminal")
	}
	if NewChunkEvent("x").IsTerminal() {
		t.Error("chunk event should not be terminal")
	}
	if NewPhaseEvent(PhaseDone, "").IsTerminal() {
		t.Error("phase event should not be terminal even for the done phase")
	}
}

func TestEvent_OmitsEmptyFieldsOnWire(t *testing.T) {
	raw, err := json.Marshal(NewChunkEvent("hi"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"tool", "params", "goal", "steps", "status"} {
		if _, ok := decoded[key]; ok {
			t.Errorf("chunk event should omit empty %q field", key)
		}
	}
	if decoded["type"] != "chunk" {
		t.Errorf("expected type chunk, got %v", decoded["type"])
	}
}

func TestNewID_Uniqueness(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == b {
		t.Error("expected unique IDs")
	}
}
