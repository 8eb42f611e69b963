package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/model"
	"github.com/dugongyete-ui/agent-manus/parser"
	"github.com/dugongyete-ui/agent-manus/session"
)

// Run executes one request through the phase state machine, returning the
// ordered event stream. The stream ends with exactly one terminal done or
// error event and is then closed; an expired deadline surfaces as a
// terminal error event, while a plain cancellation closes the stream
// without one. The caller must drain the channel (or cancel ctx) or the
// run goroutine blocks.
func (a *Agent) Run(ctx context.Context, req Request) <-chan core.Event {
	events := make(chan core.Event, a.opts.EventBuffer)
	r := &run{
		a:       a,
		ctx:     ctx,
		req:     req,
		conv:    a.opts.NewContext(),
		limiter: core.NewIterationLimiter(a.opts.MaxIterations),
		events:  events,
		goal:    req.Input,
	}

	go func() {
		defer close(events)
		if err := r.execute(); err != nil {
			switch {
			case errors.Is(ctx.Err(), context.DeadlineExceeded):
				// Timeout: the client still gets a terminal event.
				a.opts.Logger.Warn("run timed out", "session", req.SessionID)
				select {
				case events <- core.NewErrorEvent("Terjadi kesalahan: waktu permintaan habis"):
				default:
				}
			case ctx.Err() != nil:
				// Cancellation: release without further events.
			default:
				a.opts.Logger.Error("run failed", "session", req.SessionID, "error", err.Error())
				r.emit(core.NewErrorEvent("Terjadi kesalahan: " + err.Error()))
			}
		}
	}()
	return events
}

// run carries the mutable state of one loop execution.
type run struct {
	a       *Agent
	ctx     context.Context
	req     Request
	conv    *session.Context
	limiter *core.IterationLimiter
	events  chan core.Event

	execs []*core.ToolExecution
	goal  string
	steps []string
	plan  *core.Plan
	final string
	raw   string
}

// execute drives planning through synthesis. A nil return means a done
// event was emitted; an error return is converted to the terminal error
// event by Run.
func (r *run) execute() error {
	r.conv.SetSystemPrompt(r.a.opts.SystemPrompt)
	r.conv.Append(core.NewMessage(core.RoleUser, WrapHistory(r.req.History, r.req.Input)))

	handled := false
	if r.a.opts.IntentBypass {
		if action, ok := parser.DetectIntent(r.req.Input); ok {
			r.a.opts.Logger.Info("intent bypass active", "type", action.ActionType())
			if err := r.runImmediate(action); err != nil {
				return err
			}
			handled = true
		}
	}

	if !handled {
		r.emit(core.NewPhaseEvent(core.PhasePlanning, "Analyzing request..."))
		r.emit(core.NewPlanningEvent("Creating execution plan..."))

		outcome, err := r.a.plan(r.ctx, r.req.Input)
		if err != nil {
			return err
		}

		switch {
		case outcome.direct != "":
			// The plan is already the answer: Planning -> Done shortcut.
			r.final = outcome.direct
			r.streamText(r.final)
		case outcome.immediate != nil:
			if err := r.runImmediate(outcome.immediate); err != nil {
				return err
			}
		default:
			if err := r.iterate(outcome.plan); err != nil {
				return err
			}
		}
	}

	if err := r.ctx.Err(); err != nil {
		return err
	}
	if r.final == "" && r.raw == "" {
		r.final = "I couldn't process your request"
		r.emit(core.NewChunkEvent(r.final))
	}
	r.emit(core.NewDoneEvent(r.final, r.limiter.Count()))
	return nil
}

// runImmediate executes a single pre-planned action and synthesizes a short
// answer from its observation, without entering the iteration loop.
func (r *run) runImmediate(action core.Action) error {
	r.emit(core.NewPhaseEvent(core.PhaseExecuting, "Executing immediate action..."))

	switch act := action.(type) {
	case core.UseToolAction:
		exec := r.dispatch(act.Tool, act.Params)
		if exec.Succeeded() {
			r.observe(act.Tool, exec.Result)
		} else {
			r.observeError(act.Tool, exec.Result)
		}
	case core.MultiStepAction:
		r.multiStep(act.Steps)
	}

	if err := r.synthesize(synthesisShort); err != nil {
		return err
	}
	if strings.TrimSpace(r.final) == "" {
		lines := make([]string, 0, len(r.execs))
		for _, exec := range r.execs {
			lines = append(lines, fmt.Sprintf("[%s]: %s", exec.Tool, clampRunes(exec.Result, 500)))
		}
		r.final = "Tool berhasil dijalankan.\n\n" + strings.Join(lines, "\n")
		r.streamText(r.final)
	}
	return nil
}

// iterate is the executing/reflecting cycle: one model call per iteration,
// tools dispatched as requested, observations appended, until the model
// responds or the cap forces synthesis.
func (r *run) iterate(initial *core.Plan) error {
	if initial != nil {
		r.adoptPlan(initial)
	}
	r.emit(core.NewPhaseEvent(core.PhaseExecuting, "Starting execution..."))

	responded := false
	for r.limiter.Increment() == nil {
		iter := r.limiter.Count()
		r.emit(core.NewPhaseEvent(core.PhaseExecuting, fmt.Sprintf("Running step %d...", iter)))

		raw, err := r.a.router.Query(r.ctx, model.Request{Prompt: BuildPrompt(r.conv.Window())})
		if err != nil {
			return err
		}
		r.raw = raw

		switch act := r.a.parser.Parse(raw, r.req.Input).(type) {
		case core.PlanAction:
			if len(act.Steps) > 0 {
				goal := act.Goal
				if goal == "" {
					goal = r.goal
				}
				r.adoptPlan(core.NewPlan(goal, act.Steps))
			}
		case core.ThinkAction:
			r.emit(core.NewThinkingEvent(act.Thought))
			r.conv.Append(core.NewMessage(core.RoleAssistant, "Thinking: "+act.Thought))
		case core.RespondAction:
			r.final = act.Message
			r.streamText(r.final)
			responded = true
		case core.UseToolAction:
			done, err := r.useTool(iter-1, act)
			if err != nil {
				return err
			}
			responded = done
		case core.MultiStepAction:
			r.multiStep(act.Steps)
		}

		if responded || r.ctx.Err() != nil {
			break
		}
	}
	if err := r.ctx.Err(); err != nil {
		return err
	}

	if !responded {
		r.a.opts.Logger.Info("iteration cap reached, synthesizing", "iterations", r.limiter.Count())
		if err := r.synthesize(synthesisFinal); err != nil {
			return err
		}
	}

	if r.final == "" && r.raw != "" {
		r.final = r.raw
		r.streamText(r.final)
	}
	if r.final == "" {
		r.intentFallback()
	}
	return nil
}

// useTool dispatches one tool call within an iteration and reflects on a
// successful result. It reports whether the reflection produced the final
// answer.
func (r *run) useTool(stepIdx int, act core.UseToolAction) (bool, error) {
	if r.plan != nil && stepIdx < len(r.plan.Steps) {
		_ = r.plan.StartStep(stepIdx)
	}

	exec := r.dispatch(act.Tool, act.Params)
	if !exec.Succeeded() {
		r.observeError(act.Tool, exec.Result)
		return false, nil
	}

	if r.plan != nil && stepIdx < len(r.plan.Steps) {
		_ = r.plan.CompleteStep(stepIdx)
	}
	r.observe(act.Tool, exec.Result)

	r.emit(core.NewPhaseEvent(core.PhaseReflecting, "Analyzing results..."))
	var remaining []string
	if next := stepIdx + 1; next < len(r.steps) {
		remaining = r.steps[next:]
	}
	reflection, err := r.a.reflect(r.ctx, r.goal, describeStep(act.Tool, act.Params), exec.Result, remaining)
	if err != nil {
		if r.ctx.Err() != nil {
			return false, err
		}
		r.a.opts.Logger.Warn("reflection failed", "error", err.Error())
		return false, nil
	}

	switch refl := reflection.(type) {
	case core.ThinkAction:
		r.emit(core.NewReflectionEvent(refl.Thought))
		r.conv.Append(core.NewMessage(core.RoleAssistant, "Reflection: "+refl.Thought))
	case core.RespondAction:
		r.final = refl.Message
		r.streamText(r.final)
		return true, nil
	case core.UseToolAction:
		r.conv.Append(core.NewMessage(core.RoleSystem, "[Reflection]: Next action determined - use "+refl.Tool))
	}
	return false, nil
}

// multiStep dispatches tool calls strictly in listed order, then appends
// the batched observation. Later steps may depend on earlier results, so
// there is no parallelism here.
func (r *run) multiStep(steps []core.ToolCall) {
	if len(steps) == 0 {
		return
	}
	results := make([]string, 0, len(steps))
	for _, step := range steps {
		if r.ctx.Err() != nil {
			return
		}
		exec := r.dispatch(step.Tool, step.Params)
		results = append(results, fmt.Sprintf("[%s]: %s", step.Tool, core.ClampResult(exec.Result)))
	}
	r.conv.Append(core.NewMessage(core.RoleAssistant, "Menjalankan beberapa langkah..."))
	r.conv.Append(core.NewMessage(core.RoleSystem, strings.Join(results, "\n")))
}

// synthesize streams a closing answer over everything observed so far.
// Tool dispatch is not possible from here; the instruction demands plain
// text.
func (r *run) synthesize(instruction string) error {
	r.emit(core.NewPhaseEvent(core.PhaseSynthesizing, "Creating final response..."))
	prompt := BuildPrompt(r.conv.Window()) + instruction
	text, err := r.a.router.Stream(r.ctx, model.Request{Prompt: prompt}, func(chunk string) {
		r.emit(core.NewChunkEvent(chunk))
	})
	if err != nil {
		return err
	}
	r.final = text
	return nil
}

// intentFallback is the last resort when the run produced no answer at all:
// a deterministic intent match against the user input, executed directly.
func (r *run) intentFallback() {
	action, ok := parser.DetectIntent(r.req.Input)
	if !ok {
		return
	}
	r.a.opts.Logger.Info("falling back to intent detection", "type", action.ActionType())
	r.emit(core.NewStatusEvent("Using fallback intent detection..."))

	act, ok := action.(core.UseToolAction)
	if !ok {
		return
	}
	exec := r.dispatch(act.Tool, act.Params)
	if exec.Succeeded() {
		r.final = fmt.Sprintf("Tool %s executed.\n\nResult:\n%s", act.Tool, clampRunes(exec.Result, 3000))
		r.streamText(r.final)
	}
}

// adoptPlan records a new plan, publishes it and appends its summary to the
// conversation so later iterations see it.
func (r *run) adoptPlan(p *core.Plan) {
	r.plan = p
	r.goal = p.Goal
	r.steps = p.StepTexts()
	r.emit(core.NewPlanEvent(p.Goal, r.steps))

	var b strings.Builder
	fmt.Fprintf(&b, "Plan: %s\n", p.Goal)
	for i, step := range r.steps {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
	}
	r.conv.Append(core.NewMessage(core.RoleAssistant, b.String()))
}

// dispatch runs one tool call through the dispatcher, bracketing it with
// tool_start and tool_result events and collecting the audit record.
func (r *run) dispatch(name string, params map[string]any) *core.ToolExecution {
	r.emit(core.NewToolStartEvent(name, params))
	exec := r.a.dispatcher.Execute(r.ctx, r.req.SessionID, name, params)
	r.execs = append(r.execs, exec)
	r.emit(core.NewToolResultEvent(exec))
	return exec
}

// observe feeds a successful tool result back into the conversation.
func (r *run) observe(tool, result string) {
	r.conv.Append(core.NewMessage(core.RoleAssistant, fmt.Sprintf("Menggunakan %s...", tool)))
	r.conv.Append(core.NewMessage(core.RoleSystem, fmt.Sprintf("[Hasil %s]:\n%s", tool, core.ClampResult(result))))
}

// observeError records a failed dispatch as an observation; the model sees
// the failure text and may try another approach.
func (r *run) observeError(tool, result string) {
	r.conv.Append(core.NewMessage(core.RoleSystem, fmt.Sprintf("[Error %s]: %s", tool, result)))
}

// streamText re-emits an already complete answer as small chunks so the
// transport renders it progressively, the way live model output does.
func (r *run) streamText(text string) {
	size := r.a.opts.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	runes := []rune(text)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		if !r.emit(core.NewChunkEvent(string(runes[i:end]))) {
			return
		}
		if r.a.opts.ChunkDelay > 0 {
			timer := time.NewTimer(r.a.opts.ChunkDelay)
			select {
			case <-r.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// emit delivers one event, reporting false when the run is canceled. It
// never blocks past cancellation.
func (r *run) emit(ev core.Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// clampRunes truncates s to at most n runes.
func clampRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
