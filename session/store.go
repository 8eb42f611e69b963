package session

import (
	"context"
	"errors"
	"time"

	"github.com/dugongyete-ui/agent-manus/core"
)

// ErrNotFound is returned when a session id has no stored record.
var ErrNotFound = errors.New("session not found")

// ErrExists is returned when creating a session whose id is already taken.
var ErrExists = errors.New("session already exists")

// Info is a session listing entry: metadata plus the message count, without
// the message bodies.
type Info struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	Created      time.Time `json:"created_at"`
	Updated      time.Time `json:"updated_at"`
}

// Store persists sessions, their messages and their tool execution log.
// Messages and executions are append-only and read back in insertion order.
type Store interface {
	// Create registers a new session under id. Empty titles default to
	// "New Chat".
	Create(ctx context.Context, id, title string) (*core.Session, error)
	// Get loads a session with its full message history.
	Get(ctx context.Context, id string) (*core.Session, error)
	// List returns session metadata, most recently updated first.
	List(ctx context.Context) ([]Info, error)
	// SetTitle replaces a session's title.
	SetTitle(ctx context.Context, id, title string) error
	// Delete removes a session together with its messages and executions.
	Delete(ctx context.Context, id string) error

	// AppendMessage adds one message to a session's history.
	AppendMessage(ctx context.Context, sessionID string, msg core.Message) error
	// Messages returns a session's history in insertion order.
	Messages(ctx context.Context, sessionID string) ([]core.Message, error)

	// AppendExecution adds one tool execution record to a session's log,
	// clamping the stored result to core.ResultClamp runes.
	AppendExecution(ctx context.Context, sessionID string, exec *core.ToolExecution) error
	// Executions returns a session's tool execution log in dispatch order.
	Executions(ctx context.Context, sessionID string) ([]*core.ToolExecution, error)

	// Close releases any underlying resources.
	Close() error
}
