package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dugongyete-ui/agent-manus/agent"
	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/internal/idgen"
	"github.com/dugongyete-ui/agent-manus/logging"
	"github.com/dugongyete-ui/agent-manus/session"
)

// ErrSessionBusy is returned when a session already has a run in flight.
var ErrSessionBusy = errors.New("session busy: a run is already in flight")

// DefaultRunTimeout bounds one run end to end.
const DefaultRunTimeout = 3 * time.Minute

// Options holds configuration overrides passed to New.
type Options struct {
	// MaxConcurrentRuns bounds runs in flight across all sessions.
	MaxConcurrentRuns int
	// RunTimeout bounds one run end to end; 0 disables the bound.
	RunTimeout time.Duration
	// EventBuffer sizes the forwarded event channel.
	EventBuffer int
	// Logger receives run lifecycle diagnostics.
	Logger logging.Logger
}

// Run identifies one in-flight loop execution. The caller must drain
// Events; the channel closes after the terminal event (a timed-out run
// ends with a terminal error event), or without one when the run is
// canceled.
type Run struct {
	ID        string
	SessionID string
	Events    <-chan core.Event
}

// Runner wraps the agent loop with per-session mutual exclusion, a global
// concurrency bound, run cancellation and persistence. Public methods are
// safe for concurrent use.
type Runner struct {
	agent *agent.Agent
	store session.Store
	opts  Options

	sem    chan struct{}
	mu     sync.Mutex
	busy   map[string]string // sessionID -> runID
	cancel map[string]context.CancelFunc
}

// New constructs a Runner over an agent and a session store.
func New(a *agent.Agent, store session.Store, optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 10,
		RunTimeout:        DefaultRunTimeout,
		EventBuffer:       100,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxConcurrentRuns <= 0 {
		opts.MaxConcurrentRuns = 10
	}
	return &Runner{
		agent:  a,
		store:  store,
		opts:   opts,
		sem:    make(chan struct{}, opts.MaxConcurrentRuns),
		busy:   make(map[string]string),
		cancel: make(map[string]context.CancelFunc),
	}
}

// Agent exposes the wrapped agent.
func (r *Runner) Agent() *agent.Agent { return r.agent }

// Store exposes the session store runs persist through.
func (r *Runner) Store() session.Store { return r.store }

// Start begins one run for a session: persists the user message, launches
// the loop and returns the forwarded event stream. Unknown sessions are
// created with a title derived from the input.
func (r *Runner) Start(ctx context.Context, sessionID, input string) (*Run, error) {
	r.mu.Lock()
	if _, taken := r.busy[sessionID]; taken {
		r.mu.Unlock()
		return nil, ErrSessionBusy
	}
	runID := idgen.New()
	r.busy[sessionID] = runID
	r.mu.Unlock()

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		r.clear(sessionID, runID, false)
		return nil, ctx.Err()
	}

	history, err := r.prepare(ctx, sessionID, input)
	if err != nil {
		r.clear(sessionID, runID, true)
		return nil, err
	}

	runCtx, cancelRun := r.runContext(ctx)
	r.mu.Lock()
	r.cancel[runID] = cancelRun
	r.mu.Unlock()

	out := make(chan core.Event, r.opts.EventBuffer)
	go r.forward(runCtx, cancelRun, runID, sessionID, input, history, out)

	r.opts.Logger.Info("run started", "run", runID, "session", sessionID)
	return &Run{ID: runID, SessionID: sessionID, Events: out}, nil
}

// Cancel aborts an in-flight run. Its event stream closes without a
// terminal event.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancelRun, ok := r.cancel[runID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %q not found", runID)
	}
	cancelRun()
	r.opts.Logger.Info("run canceled", "run", runID)
	return nil
}

// Busy reports whether a session has a run in flight.
func (r *Runner) Busy(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, taken := r.busy[sessionID]
	return taken
}

// ActiveRuns lists the ids of runs currently in flight, sorted.
func (r *Runner) ActiveRuns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.cancel))
	for id := range r.cancel {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// prepare loads or creates the session, renders the transcript of prior
// turns and persists the incoming user message.
func (r *Runner) prepare(ctx context.Context, sessionID, input string) (string, error) {
	_, err := r.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		_, err = r.store.Create(ctx, sessionID, core.DeriveTitle(input))
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}

	prior, err := r.store.Messages(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	if err := r.store.AppendMessage(ctx, sessionID, core.NewMessage(core.RoleUser, input)); err != nil {
		return "", fmt.Errorf("persist user message: %w", err)
	}
	return session.RenderTranscript(prior), nil
}

func (r *Runner) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.RunTimeout > 0 {
		return context.WithTimeout(ctx, r.opts.RunTimeout)
	}
	return context.WithCancel(ctx)
}

// forward pumps loop events to the caller, persisting tool executions as
// they complete and the assistant reply when the run terminates. The
// persistence context outlives cancellation so a client disconnect cannot
// lose the outcome of work already done.
func (r *Runner) forward(
	ctx context.Context,
	cancelRun context.CancelFunc,
	runID, sessionID, input, history string,
	out chan<- core.Event,
) {
	defer func() {
		cancelRun()
		r.clear(sessionID, runID, true)
		close(out)
	}()

	persist := context.WithoutCancel(ctx)
	var execs []*core.ToolExecution
	terminal := false

	for ev := range r.agent.Run(ctx, agent.Request{SessionID: sessionID, Input: input, History: history}) {
		switch ev.Type {
		case core.EventToolResult:
			if ev.Execution != nil {
				execs = append(execs, ev.Execution)
				if err := r.store.AppendExecution(persist, sessionID, ev.Execution); err != nil {
					r.opts.Logger.Error("persist execution failed",
						"run", runID, "tool", ev.Execution.Tool, "error", err.Error())
				}
			}
		case core.EventDone:
			terminal = true
			r.finish(persist, sessionID, input, ev.Content, execs)
			r.opts.Logger.Info("run completed",
				"run", runID, "session", sessionID, "iterations", ev.Iterations)
		case core.EventError:
			terminal = true
			r.finishError(persist, sessionID, ev.Content)
			r.opts.Logger.Warn("run failed", "run", runID, "session", sessionID)
		}

		select {
		case out <- ev:
		default:
			select {
			case out <- ev:
			case <-ctx.Done():
				// Client is gone; keep draining so persistence completes.
			}
		}
	}

	if !terminal {
		r.opts.Logger.Info("run ended without terminal event",
			"run", runID, "session", sessionID, "cause", fmt.Sprint(ctx.Err()))
	}
}

// finish persists the assistant reply, carrying the run's execution
// summaries as message metadata, and derives the session title after the
// first exchange.
func (r *Runner) finish(ctx context.Context, sessionID, input, final string, execs []*core.ToolExecution) {
	summaries := make([]map[string]any, 0, len(execs))
	for _, exec := range execs {
		summaries = append(summaries, map[string]any{
			"tool":        exec.Tool,
			"params":      exec.Params,
			"result":      core.ClampResult(exec.Result),
			"status":      string(exec.Status),
			"duration_ms": exec.DurationMS,
		})
	}

	msg := core.NewMessage(core.RoleAssistant, final)
	msg.Metadata = map[string]any{"tool_executions": summaries}
	if err := r.store.AppendMessage(ctx, sessionID, msg); err != nil {
		r.opts.Logger.Error("persist assistant message failed", "session", sessionID, "error", err.Error())
		return
	}

	if msgs, err := r.store.Messages(ctx, sessionID); err == nil && len(msgs) <= 2 {
		if err := r.store.SetTitle(ctx, sessionID, core.DeriveTitle(input)); err != nil {
			r.opts.Logger.Warn("set title failed", "session", sessionID, "error", err.Error())
		}
	}
}

// finishError records the terminal error text as the assistant turn so the
// history explains what the user saw.
func (r *Runner) finishError(ctx context.Context, sessionID, message string) {
	if err := r.store.AppendMessage(ctx, sessionID, core.NewMessage(core.RoleAssistant, message)); err != nil {
		r.opts.Logger.Error("persist error message failed", "session", sessionID, "error", err.Error())
	}
}

// clear releases a run's bookkeeping. releaseSlot is false only when the
// semaphore slot was never acquired.
func (r *Runner) clear(sessionID, runID string, releaseSlot bool) {
	r.mu.Lock()
	if r.busy[sessionID] == runID {
		delete(r.busy, sessionID)
	}
	delete(r.cancel, runID)
	r.mu.Unlock()
	if releaseSlot {
		<-r.sem
	}
}
