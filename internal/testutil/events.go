package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/dugongyete-ui/agent-manus/core"
)

// CollectEvents drains an event stream to completion, failing the test if
// the channel does not close within the timeout. A zero timeout defaults to
// five seconds.
func CollectEvents(t *testing.T, ch <-chan core.Event, timeout time.Duration) []core.Event {
	t.Helper()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	deadline := time.After(timeout)

	var events []core.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("event stream did not close within %v; got %d events: %v",
				timeout, len(events), Types(events))
			return events
		}
	}
}

// Types projects an event sequence onto its type discriminators, preserving
// order. Handy for asserting emission order.
func Types(events []core.Event) []core.EventType {
	out := make([]core.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

// ChunkText concatenates the content of all chunk events in order,
// reconstructing the streamed answer.
func ChunkText(events []core.Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.Type == core.EventChunk {
			b.WriteString(ev.Content)
		}
	}
	return b.String()
}

// First returns the first event of the given type and whether one exists.
func First(events []core.Event, t core.EventType) (core.Event, bool) {
	for _, ev := range events {
		if ev.Type == t {
			return ev, true
		}
	}
	return core.Event{}, false
}

// Count returns how many events of the given type occur in the sequence.
func Count(events []core.Event, t core.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// Last returns the final event of the sequence, which for a well-formed run
// is the terminal done or error event.
func Last(t *testing.T, events []core.Event) core.Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	return events[len(events)-1]
}

// RequireTerminal asserts the sequence ends with exactly one terminal event
// and returns it.
func RequireTerminal(t *testing.T, events []core.Event) core.Event {
	t.Helper()
	last := Last(t, events)
	if !last.IsTerminal() {
		t.Fatalf("last event %q is not terminal; sequence: %v", last.Type, Types(events))
	}
	for _, ev := range events[:len(events)-1] {
		if ev.IsTerminal() {
			t.Fatalf("terminal event %q emitted before the end; sequence: %v", ev.Type, Types(events))
		}
	}
	return last
}
