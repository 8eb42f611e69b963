package core

import (
	"time"

	"github.com/dugongyete-ui/agent-manus/internal/idgen"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks messages authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks messages authored by the model.
	RoleAssistant Role = "assistant"
	// RoleSystem marks instructions and observations injected by the runtime.
	RoleSystem Role = "system"
	// RoleTool marks raw tool output messages.
	RoleTool Role = "tool"
)

// Message is a single conversational turn. Messages are append-only: once
// added to a session or context they are never mutated, and insertion order
// is conversational order. Metadata may reference tool executions or a plan
// but never alters the content.
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id,omitempty"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMessage creates a message with a fresh sortable ID and UTC timestamp.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        idgen.New(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
