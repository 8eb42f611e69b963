// Package agent implements the reasoning loop that turns a user request
// into a final answer through a phase state machine: planning, executing,
// reflecting, synthesizing.
//
// A run starts with a planning call that can short-circuit to a direct
// answer, trigger one immediate action, or lay out a multi-step plan. The
// execution phase then alternates model calls and tool dispatches, feeding
// every tool result back into the conversation as an observation, until the
// model produces a final response or the iteration cap forces a synthesis
// pass over everything observed so far.
//
// Progress is reported as an ordered stream of core.Event values; the
// stream ends with exactly one terminal done or error event, or closes
// silently when the caller cancels the context.
package agent
