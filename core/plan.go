package core

import "fmt"

// StepStatus is the lifecycle state of a plan step. Transitions move only
// forward: pending -> running -> completed.
type StepStatus string

const (
	// StepPending marks a step that has not started.
	StepPending StepStatus = "pending"
	// StepRunning marks the step currently being executed.
	StepRunning StepStatus = "running"
	// StepCompleted marks a finished step.
	StepCompleted StepStatus = "completed"
)

// PlanStep is one unit of a plan: a human-readable description plus status.
type PlanStep struct {
	Text   string     `json:"text"`
	Status StepStatus `json:"status"`
}

// Plan is a goal with ordered steps, created during the planning phase and
// mutated in place as steps progress. Plans are not persisted; their durable
// traces are the plan event and the plan summary appended to context.
type Plan struct {
	Goal  string     `json:"goal"`
	Steps []PlanStep `json:"steps"`
}

// NewPlan builds a plan with every step pending.
func NewPlan(goal string, steps []string) *Plan {
	p := &Plan{Goal: goal, Steps: make([]PlanStep, len(steps))}
	for i, text := range steps {
		p.Steps[i] = PlanStep{Text: text, Status: StepPending}
	}
	return p
}

// StartStep marks step i running. Only a pending step may start.
func (p *Plan) StartStep(i int) error {
	if i < 0 || i >= len(p.Steps) {
		return fmt.Errorf("plan step %d out of range", i)
	}
	if p.Steps[i].Status != StepPending {
		return fmt.Errorf("plan step %d is %s, cannot start", i, p.Steps[i].Status)
	}
	p.Steps[i].Status = StepRunning
	return nil
}

// CompleteStep marks step i completed. Only a running step may complete;
// skipping straight from pending is rejected.
func (p *Plan) CompleteStep(i int) error {
	if i < 0 || i >= len(p.Steps) {
		return fmt.Errorf("plan step %d out of range", i)
	}
	if p.Steps[i].Status != StepRunning {
		return fmt.Errorf("plan step %d is %s, cannot complete", i, p.Steps[i].Status)
	}
	p.Steps[i].Status = StepCompleted
	return nil
}

// Progress returns the number of completed steps and the total step count.
func (p *Plan) Progress() (completed, total int) {
	for _, s := range p.Steps {
		if s.Status == StepCompleted {
			completed++
		}
	}
	return completed, len(p.Steps)
}

// StepTexts returns the ordered step descriptions.
func (p *Plan) StepTexts() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Text
	}
	return out
}
