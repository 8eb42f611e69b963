package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/internal/idgen"
	"github.com/dugongyete-ui/agent-manus/logging"
)

// DefaultTimeout bounds a single tool execution.
const DefaultTimeout = 120 * time.Second

// Guard pre-screens dangerous tool parameters before execution. A nil guard
// allows everything.
type Guard interface {
	// ValidateCommand returns an error when a shell command must not run.
	ValidateCommand(command string) error
	// ValidateFilePath returns an error when a path must not be accessed
	// for the given operation (read, write, delete).
	ValidateFilePath(path, operation string) error
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Timeout bounds each execution; 0 disables the bound.
	Timeout time.Duration
	// Guard screens shell commands and file paths. Optional.
	Guard Guard
	// Logger receives dispatch diagnostics.
	Logger logging.Logger
}

// Dispatcher executes tool actions and produces one audit record per
// dispatch. It never returns an error: unknown tools, guard blocks, panics,
// timeouts and tool failures all become error records so the loop can feed
// the failure text back to the model as an observation.
type Dispatcher struct {
	registry *Registry
	opts     DispatcherOptions
}

// NewDispatcher creates a Dispatcher over a tool registry.
func NewDispatcher(registry *Registry, optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{
		Timeout: DefaultTimeout,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{registry: registry, opts: opts}
}

// Registry exposes the dispatcher's tool registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Execute runs one tool call to completion and returns its audit record.
func (d *Dispatcher) Execute(ctx context.Context, sessionID, name string, params map[string]any) *core.ToolExecution {
	if params == nil {
		params = map[string]any{}
	}
	start := time.Now()
	exec := &core.ToolExecution{
		ID:        idgen.New(),
		SessionID: sessionID,
		Tool:      name,
		Params:    params,
		StartedAt: start,
	}

	fail := func(result string) *core.ToolExecution {
		exec.Result = result
		exec.Status = core.StatusError
		exec.DurationMS = time.Since(start).Milliseconds()
		return exec
	}

	t, ok := d.registry.Get(name)
	if !ok {
		d.opts.Logger.Warn("unknown tool requested", "tool", name)
		return fail(fmt.Sprintf("Tool '%s' tidak ditemukan.", name))
	}

	if msg, blocked := d.screen(name, params); blocked {
		d.opts.Logger.Warn("tool call blocked", "tool", name, "reason", msg)
		return fail(msg)
	}

	runCtx := ctx
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	type outcome struct {
		result string
		err    error
	}
	resCh := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resCh <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		result, err := t.Execute(runCtx, params)
		resCh <- outcome{result: result, err: err}
	}()

	select {
	case <-runCtx.Done():
		// The tool goroutine is abandoned; tools must honor ctx to stop.
		d.opts.Logger.Warn("tool call aborted", "tool", name, "cause", runCtx.Err().Error())
		return fail(fmt.Sprintf("Error pada %s: %v", name, runCtx.Err()))
	case out := <-resCh:
		if out.err != nil {
			d.opts.Logger.Error("tool call failed", "tool", name, "error", out.err.Error())
			return fail(fmt.Sprintf("Error pada %s: %s", name, out.err.Error()))
		}
		exec.Result = out.result
		exec.Status = core.StatusSuccess
		exec.DurationMS = time.Since(start).Milliseconds()
		d.opts.Logger.Info("tool call completed", "tool", name, "duration_ms", exec.DurationMS)
		return exec
	}
}

// screen applies the guard to the parameters the original system treats as
// dangerous: shell commands and file paths.
func (d *Dispatcher) screen(name string, params map[string]any) (string, bool) {
	if d.opts.Guard == nil {
		return "", false
	}

	switch name {
	case "shell_tool":
		command, _ := params["command"].(string)
		if command == "" {
			return "", false
		}
		if err := d.opts.Guard.ValidateCommand(command); err != nil {
			return fmt.Sprintf("[KEAMANAN] Perintah diblokir: %s", err.Error()), true
		}
	case "file_tool":
		path, _ := params["path"].(string)
		if path == "" {
			return "", false
		}
		operation, _ := params["operation"].(string)
		if operation == "" {
			operation = "read"
		}
		if err := d.opts.Guard.ValidateFilePath(path, operation); err != nil {
			return fmt.Sprintf("[KEAMANAN] Akses path diblokir: %s", err.Error()), true
		}
	}
	return "", false
}
