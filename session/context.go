package session

import (
	"sync"

	"github.com/dugongyete-ui/agent-manus/core"
	"github.com/dugongyete-ui/agent-manus/logging"
)

// SummaryHeader prefixes the synthesized summary when it is injected into
// the context window as a system message.
const SummaryHeader = "Ringkasan percakapan sebelumnya:"

// ContextOptions configures a conversation Context.
type ContextOptions struct {
	// MaxTokens caps the estimated token size of a context window. Oldest
	// windowed turns are dropped first when the cap is exceeded.
	MaxTokens int
	// MemoryWindow is the number of recent messages kept verbatim.
	MemoryWindow int
	// SummarizeAfter is the history length beyond which compaction is
	// attempted. Compaction only happens once the history also exceeds
	// MemoryWindow, so the window is never cut short.
	SummarizeAfter int
	// Summarizer compacts turns that fall out of the window. Nil disables
	// compaction and the history grows unbounded.
	Summarizer Summarizer
	// Logger receives compaction diagnostics.
	Logger logging.Logger
}

// Context holds the ordered conversation history feeding one agent loop.
// It keeps the most recent MemoryWindow messages verbatim; older turns are
// folded into a single running summary that is replayed as a system message
// at the head of every window.
//
// Context is safe for concurrent use, though a session's loop is the only
// writer in practice (the runner serializes runs per session).
type Context struct {
	mu           sync.RWMutex
	opts         ContextOptions
	systemPrompt string
	summary      string
	messages     []core.Message
}

// NewContext creates an empty conversation context.
func NewContext(optFns ...func(o *ContextOptions)) *Context {
	opts := ContextOptions{
		MaxTokens:      128000,
		MemoryWindow:   20,
		SummarizeAfter: 15,
		Summarizer:     HeadlineSummarizer{},
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Context{opts: opts}
}

// SetSystemPrompt sets the instruction text emitted at the head of every
// context window.
func (c *Context) SetSystemPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.systemPrompt = prompt
}

// Append adds one message to the history, compacting older turns into the
// running summary once the history outgrows the configured thresholds.
func (c *Context) Append(msg core.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	c.opts.Logger.Debug("context message appended", "role", msg.Role, "total", len(c.messages))
	if len(c.messages) > c.opts.SummarizeAfter {
		c.compactLocked()
	}
}

// compactLocked folds everything older than the memory window into the
// summary. No-op while the history still fits the window.
func (c *Context) compactLocked() {
	if c.opts.Summarizer == nil || len(c.messages) <= c.opts.MemoryWindow {
		return
	}
	cut := len(c.messages) - c.opts.MemoryWindow
	old := c.messages[:cut]
	c.summary += c.opts.Summarizer.Summarize(old) + "\n"
	c.messages = append([]core.Message(nil), c.messages[cut:]...)
	c.opts.Logger.Info("context compacted", "archived", len(old), "kept", len(c.messages))
}

// Window returns the bounded context for the next model call: the system
// prompt, the running summary (as a system message) and the most recent
// turns. When the estimated token size exceeds MaxTokens, the oldest
// windowed turns are dropped; the newest message always survives.
func (c *Context) Window() []core.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	recent := c.messages
	if len(recent) > c.opts.MemoryWindow {
		recent = recent[len(recent)-c.opts.MemoryWindow:]
	}

	head := 0
	if c.opts.MaxTokens > 0 {
		budget := c.opts.MaxTokens * 4
		used := len(c.systemPrompt) + len(c.summary)
		for _, msg := range recent {
			used += len(msg.Content)
		}
		for used > budget && head < len(recent)-1 {
			used -= len(recent[head].Content)
			head++
		}
	}

	out := make([]core.Message, 0, len(recent)-head+2)
	if c.systemPrompt != "" {
		out = append(out, core.NewMessage(core.RoleSystem, c.systemPrompt))
	}
	if c.summary != "" {
		out = append(out, core.NewMessage(core.RoleSystem, SummaryHeader+"\n"+c.summary))
	}
	out = append(out, recent[head:]...)
	return out
}

// TokenEstimate approximates the token size of the full context using the
// four-characters-per-token heuristic.
func (c *Context) TokenEstimate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := len(c.systemPrompt) + len(c.summary)
	for _, msg := range c.messages {
		total += len(msg.Content)
	}
	return total / 4
}

// Len returns the number of messages currently held verbatim.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Summary returns the accumulated summary of compacted turns.
func (c *Context) Summary() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.summary
}

// History returns a copy of the verbatim message history in order. Turns
// already folded into the summary are not included.
func (c *Context) History() []core.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Clear drops the history and summary, keeping the system prompt.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.summary = ""
}
