package toolkit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dugongyete-ui/agent-manus/logging"
)

// MaxMessageLength bounds a single outbound message before truncation.
const MaxMessageLength = 10000

// messageTypes are the accepted message categories; anything else falls
// back to info.
var messageTypes = map[string]bool{
	"info": true, "warning": true, "error": true,
	"success": true, "question": true, "progress": true,
}

// UserMessage is one message sent towards the user.
type UserMessage struct {
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// MessageOptions configures a MessageTool.
type MessageOptions struct {
	// MaxLength overrides the message length bound.
	MaxLength int
	// Notify, when set, receives every sent message. The server uses this
	// to push messages over its live connections.
	Notify func(msg UserMessage)
	// Logger receives messaging diagnostics.
	Logger logging.Logger
}

// MessageTool queues messages for the user: plain sends, notifications,
// progress updates and questions awaiting an answer.
type MessageTool struct {
	opts MessageOptions

	mu       sync.Mutex
	messages []*UserMessage
	pending  []*UserMessage
}

// NewMessageTool creates a MessageTool.
func NewMessageTool(optFns ...func(o *MessageOptions)) *MessageTool {
	opts := MessageOptions{
		MaxLength: MaxMessageLength,
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = MaxMessageLength
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &MessageTool{opts: opts}
}

// Name returns the tool identifier.
func (t *MessageTool) Name() string { return "message_tool" }

// Description returns the tool description shown to the model.
func (t *MessageTool) Description() string {
	return "Sends a message to the user. " +
		"Types: info, warning, error, success, question, progress."
}

// Parameters returns the JSON schema for tool parameters.
func (t *MessageTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "Message text for the user",
			},
			"type": map[string]any{
				"type":        "string",
				"enum":        []string{"info", "warning", "error", "success", "question", "progress"},
				"description": "Message category (default: info)",
			},
		},
		"required": []string{"content"},
	}
}

// Execute sends the message and confirms delivery to the model.
func (t *MessageTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	content := stringParam(params, "content")
	if content == "" {
		return "Tidak ada konten pesan.", nil
	}
	msgType := stringParam(params, "type")
	if msgType == "" {
		msgType = "info"
	}
	t.Send(content, msgType)
	return fmt.Sprintf("Pesan terkirim: %s", content), nil
}

// Send records a message of the given type. Overlong content is truncated,
// unknown types become info.
func (t *MessageTool) Send(content, msgType string) UserMessage {
	if len([]rune(content)) > t.opts.MaxLength {
		content = truncateRunes(content, t.opts.MaxLength) + "... (terpotong)"
	}
	if !messageTypes[msgType] {
		msgType = "info"
	}

	msg := &UserMessage{
		Content:   content,
		Type:      msgType,
		Sender:    "agent",
		Recipient: "user",
		Timestamp: time.Now(),
	}

	t.mu.Lock()
	t.messages = append(t.messages, msg)
	if msgType == "question" {
		t.pending = append(t.pending, msg)
	}
	t.mu.Unlock()

	t.opts.Logger.Info("message sent", "type", msgType, "chars", len(content))
	if t.opts.Notify != nil {
		t.opts.Notify(*msg)
	}
	return *msg
}

// Ask sends a question that waits for an answer.
func (t *MessageTool) Ask(question string) UserMessage {
	return t.Send(question, "question")
}

// Notify sends a titled notification.
func (t *MessageTool) Notify(title, body, level string) UserMessage {
	return t.Send(fmt.Sprintf("**%s**\n%s", title, body), level)
}

// Progress sends a progress update for a task.
func (t *MessageTool) Progress(task string, percentage float64, detail string) UserMessage {
	content := fmt.Sprintf("Progres [%s]: %.0f%%", task, percentage)
	if detail != "" {
		content += " - " + detail
	}
	return t.Send(content, "progress")
}

// Unread returns the unread messages and marks them read.
func (t *MessageTool) Unread() []UserMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []UserMessage
	for _, msg := range t.messages {
		if !msg.Read {
			msg.Read = true
			out = append(out, *msg)
		}
	}
	return out
}

// History returns the most recent messages, newest last.
func (t *MessageTool) History(limit int) []UserMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit <= 0 || limit > len(t.messages) {
		limit = len(t.messages)
	}
	out := make([]UserMessage, 0, limit)
	for _, msg := range t.messages[len(t.messages)-limit:] {
		out = append(out, *msg)
	}
	return out
}

// PendingQuestions returns questions still waiting for an answer.
func (t *MessageTool) PendingQuestions() []UserMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]UserMessage, 0, len(t.pending))
	for _, msg := range t.pending {
		out = append(out, *msg)
	}
	return out
}

// AnswerQuestion resolves the oldest pending question with the given
// answer and returns it.
func (t *MessageTool) AnswerQuestion(answer string) (UserMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return UserMessage{}, fmt.Errorf("Tidak ada pertanyaan yang menunggu jawaban")
	}
	question := t.pending[0]
	t.pending = t.pending[1:]
	question.Read = true
	t.opts.Logger.Info("question answered", "question", question.Content, "answer", answer)
	return *question, nil
}
