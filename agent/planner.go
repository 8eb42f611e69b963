package agent

import (
	"context"
	"strings"

	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/model"
	"github.com/dugongyete-ui/agent-manus/parser"
)

// planOutcome is the result of the planning phase. At most one field is
// set; the zero outcome means the request is handled as a single implicit
// step with no plan.
type planOutcome struct {
	direct    string
	immediate core.Action
	plan      *core.Plan
}

// plan asks the model how to approach the request. Provider failures
// propagate to the caller; unusable output degrades to the zero outcome.
func (a *Agent) plan(ctx context.Context, userMessage string) (planOutcome, error) {
	raw, err := a.router.Query(ctx, model.Request{
		System: a.opts.SystemPrompt,
		Prompt: planningPrompt(userMessage),
	})
	if err != nil {
		return planOutcome{}, err
	}

	obj, ok := parser.ExtractObject(raw)
	if !ok {
		a.opts.Logger.Debug("planning output not structured, treating request as single step")
		return planOutcome{}, nil
	}

	if text, ok := obj["direct_response"].(string); ok && strings.TrimSpace(text) != "" {
		return planOutcome{direct: text}, nil
	}

	if m, ok := obj["immediate_action"].(map[string]any); ok {
		if action, ok := parser.FromObject(m, raw); ok {
			switch act := action.(type) {
			case core.RespondAction:
				return planOutcome{direct: act.Message}, nil
			case core.UseToolAction, core.MultiStepAction:
				return planOutcome{immediate: action}, nil
			}
		}
	}

	if goal, ok := obj["goal"].(string); ok {
		if steps := planSteps(obj["steps"]); len(steps) > 0 {
			return planOutcome{plan: core.NewPlan(goal, steps)}, nil
		}
	}

	a.opts.Logger.Debug("planning output carried no usable shape", "keys", len(obj))
	return planOutcome{}, nil
}

// planSteps extracts non-blank step descriptions from a decoded JSON list.
func planSteps(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
