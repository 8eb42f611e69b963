package agent

import (
	"context"
	"errors"
	"time"

	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/logging"
	"github.com/dugongyete-ui/agent-manus/model"
	"github.com/dugongyete-ui/agent-manus/parser"
	"github.com/dugongyete-ui/agent-manus/session"
	"github.com/dugongyete-ui/agent-manus/tool"
)

// DefaultMaxIterations bounds the reasoning iterations of one run.
const DefaultMaxIterations = 10

const (
	defaultChunkSize   = 3
	defaultChunkDelay  = 10 * time.Millisecond
	defaultEventBuffer = 64
)

// Options configures an Agent.
type Options struct {
	// MaxIterations caps reasoning iterations per run; 0 means unlimited.
	MaxIterations int
	// SystemPrompt is the action-protocol instruction heading every
	// context window.
	SystemPrompt string
	// ChunkSize is the rune count per chunk when re-streaming an already
	// complete answer.
	ChunkSize int
	// ChunkDelay paces re-streamed chunks. Zero disables pacing.
	ChunkDelay time.Duration
	// EventBuffer sizes the event channel returned by Run.
	EventBuffer int
	// IntentBypass skips the model entirely when the user input matches a
	// deterministic intent rule, dispatching the tool directly.
	IntentBypass bool
	// NewContext builds the fresh conversation context backing one run.
	NewContext func() *session.Context
	// Logger receives loop diagnostics.
	Logger logging.Logger
}

// Request describes one run of the loop.
type Request struct {
	// SessionID stamps tool executions for auditing. Optional.
	SessionID string
	// Input is the user message driving the run.
	Input string
	// History is the rendered transcript of prior turns; empty for the
	// first turn of a session.
	History string
}

// Agent drives the reasoning loop over a model router, a response parser
// and a tool dispatcher. It holds no per-run state; one Agent serves any
// number of concurrent runs.
type Agent struct {
	router     *model.Router
	parser     *parser.Parser
	dispatcher *tool.Dispatcher
	opts       Options
}

// New creates an Agent.
func New(router *model.Router, p *parser.Parser, dispatcher *tool.Dispatcher, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxIterations: DefaultMaxIterations,
		SystemPrompt:  DefaultSystemPrompt,
		ChunkSize:     defaultChunkSize,
		ChunkDelay:    defaultChunkDelay,
		EventBuffer:   defaultEventBuffer,
		NewContext:    func() *session.Context { return session.NewContext() },
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.NewContext == nil {
		opts.NewContext = func() *session.Context { return session.NewContext() }
	}
	return &Agent{router: router, parser: p, dispatcher: dispatcher, opts: opts}
}

// Router exposes the agent's model router, e.g. for model switching.
func (a *Agent) Router() *model.Router { return a.router }

// Dispatcher exposes the agent's tool dispatcher.
func (a *Agent) Dispatcher() *tool.Dispatcher { return a.dispatcher }

// MaxIterations reports the configured iteration cap, 0 when unlimited.
func (a *Agent) MaxIterations() int { return a.opts.MaxIterations }

// Process runs a request to completion and returns the final answer,
// draining the event stream internally. Callers that need the events use
// Run directly.
func (a *Agent) Process(ctx context.Context, req Request) (string, error) {
	var final string
	for ev := range a.Run(ctx, req) {
		switch ev.Type {
		case core.EventDone:
			final = ev.Content
		case core.EventError:
			return "", errors.New(ev.Content)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return final, nil
}
