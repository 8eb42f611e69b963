package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/model"
)

// reflect asks whether the goal is satisfied after a tool result. The
// returned action is advisory: think continues the loop, respond ends it,
// use_tool is recorded as a hint for the next iteration. Failures are the
// caller's to tolerate; a failed reflection never fails the run.
func (a *Agent) reflect(ctx context.Context, goal, completedStep, result string, remaining []string) (core.Action, error) {
	raw, err := a.router.Query(ctx, model.Request{
		System: a.opts.SystemPrompt,
		Prompt: reflectionPrompt(goal, completedStep, result, remaining),
	})
	if err != nil {
		return nil, err
	}
	return a.parser.Parse(raw, ""), nil
}

// describeStep renders a completed tool dispatch for the reflection prompt.
func describeStep(tool string, params map[string]any) string {
	data, err := json.Marshal(params)
	if err != nil {
		data = []byte("{}")
	}
	return fmt.Sprintf("Used %s with params %s", tool, data)
}
