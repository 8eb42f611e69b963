package testutil

import (
	"github.com/dugongyete-ui/agent-manus/core"
)

// ConversationBuilder constructs message histories with fluent chaining.
// Example:
//
//	msgs := NewConversationBuilder().User("hi").Assistant("hello").Build()
//
// Chain only the turns you need; order of calls is conversational order.
type ConversationBuilder struct {
	messages []core.Message
}

// NewConversationBuilder creates an empty builder.
func NewConversationBuilder() *ConversationBuilder { return &ConversationBuilder{} }

// User appends a user turn (chainable).
func (b *ConversationBuilder) User(content string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewMessage(core.RoleUser, content))
	return b
}

// Assistant appends an assistant turn (chainable).
func (b *ConversationBuilder) Assistant(content string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewMessage(core.RoleAssistant, content))
	return b
}

// System appends a system observation (chainable).
func (b *ConversationBuilder) System(content string) *ConversationBuilder {
	b.messages = append(b.messages, core.NewMessage(core.RoleSystem, content))
	return b
}

// Build returns the accumulated messages in order.
func (b *ConversationBuilder) Build() []core.Message {
	out := make([]core.Message, len(b.messages))
	copy(out, b.messages)
	return out
}
