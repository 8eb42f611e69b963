package session

import (
	"fmt"
	"strings"

	"github.com/dugongyete-ui/agent-manus/core"
)

// Summarizer compacts a run of older conversation turns into one block of
// text that replaces them in the context window. Implementations must be
// cheap enough to call inline from Context.Append; anything slow (a model
// backed summarizer, say) should precompute or cache internally.
type Summarizer interface {
	Summarize(messages []core.Message) string
}

// HeadlineSummarizer is the default heuristic summarizer: one line per
// message, role-tagged, content truncated to MaxChars runes. It loses
// detail deliberately; the window keeps the recent turns verbatim.
type HeadlineSummarizer struct {
	// MaxChars bounds each message's contribution. Zero means 200.
	MaxChars int
}

// Summarize renders the messages as "[role]: content" lines.
func (s HeadlineSummarizer) Summarize(messages []core.Message) string {
	maxChars := s.MaxChars
	if maxChars <= 0 {
		maxChars = 200
	}
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		content := msg.Content
		if runes := []rune(content); len(runes) > maxChars {
			content = string(runes[:maxChars])
		}
		parts = append(parts, fmt.Sprintf("[%s]: %s", msg.Role, content))
	}
	return strings.Join(parts, "\n")
}

// RenderTranscript flattens a message history into the plain text form fed
// to prompt assembly: "User:" and "Assistant:" lines plus bracketed system
// observations, one per line. Tool messages are skipped; their content
// reaches the transcript as system observations instead.
func RenderTranscript(messages []core.Message) string {
	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case core.RoleUser:
			parts = append(parts, "User: "+msg.Content)
		case core.RoleAssistant:
			parts = append(parts, "Assistant: "+msg.Content)
		case core.RoleSystem:
			parts = append(parts, "[System]: "+msg.Content)
		}
	}
	return strings.Join(parts, "\n")
}
