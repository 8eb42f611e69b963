package core

// Action is the structured decision extracted from one model response. It is
// a closed set of variants; call sites switch exhaustively on the concrete
// type. Actions are transient: only their effects (messages, executions,
// events) are stored.
type Action interface {
	// ActionType returns the wire name of the variant (use_tool, multi_step,
	// think, plan, respond).
	ActionType() string
}

// ToolCall names a tool and its input parameters.
type ToolCall struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

// UseToolAction requests a single tool dispatch.
type UseToolAction struct {
	Tool   string
	Params map[string]any
}

// ActionType implements Action.
func (UseToolAction) ActionType() string { return "use_tool" }

// MultiStepAction requests several tool dispatches executed strictly in the
// listed order; later steps may depend on earlier observations.
type MultiStepAction struct {
	Steps []ToolCall
}

// ActionType implements Action.
func (MultiStepAction) ActionType() string { return "multi_step" }

// ThinkAction records an intermediate thought without any side effect.
type ThinkAction struct {
	Thought string
}

// ActionType implements Action.
func (ThinkAction) ActionType() string { return "think" }

// PlanAction proposes a goal and ordered step descriptions.
type PlanAction struct {
	Goal  string
	Steps []string
}

// ActionType implements Action.
func (PlanAction) ActionType() string { return "plan" }

// RespondAction carries a final natural-language answer for the user.
type RespondAction struct {
	Message string
}

// ActionType implements Action.
func (RespondAction) ActionType() string { return "respond" }
