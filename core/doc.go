// Package core provides the foundational domain types shared by every layer
// of the agent runtime. It defines:
//
//   - Events (immutable, typed records streamed to clients in emission order)
//   - Messages and Sessions (append-only conversational history)
//   - ToolExecution (audit record of a single tool dispatch)
//   - Action (the tagged variants a model response parses into)
//   - Plan / PlanStep (execution plan with forward-only step transitions)
//
// The package intentionally keeps implementation concerns (parsing, model
// routing, dispatch, persistence) out of scope so that higher level packages
// can depend on these contracts without creating import cycles.
package core
