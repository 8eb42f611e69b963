package core

import (
	"strings"
	"sync"
	"time"

	"github.com/dugongyete-ui/agent-manus/internal/idgen"
)

// TitleMaxLen bounds a session title derived from the first user message.
const TitleMaxLen = 50

// Session is a conversational container holding an ordered, append-only
// message history. It is safe for concurrent access.
//
// Contract:
//   - Append updates the Updated timestamp
//   - Messages returns a defensive copy to avoid external mutation
//   - the message slice is never reordered or truncated
type Session struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Created  time.Time `json:"created_at"`
	Updated  time.Time `json:"updated_at"`
	messages []Message
	mu       sync.RWMutex
}

// NewSession creates an empty session. An empty id is replaced with a fresh
// sortable identifier.
func NewSession(id, title string) *Session {
	if id == "" {
		id = idgen.New()
	}
	now := time.Now().UTC()
	return &Session{ID: id, Title: title, Created: now, Updated: now}
}

// Append adds a message to the history, stamping its SessionID.
func (s *Session) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.SessionID = s.ID
	s.messages = append(s.messages, msg)
	s.Updated = time.Now().UTC()
}

// Messages returns a defensive copy of the full message history in order.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Clone returns a deep copy safe for independent mutation. Message values
// are copied; their metadata maps are shared (messages are immutable once
// appended).
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := &Session{ID: s.ID, Title: s.Title, Created: s.Created, Updated: s.Updated}
	c.messages = make([]Message, len(s.messages))
	copy(c.messages, s.messages)
	return c
}

// Restore replaces the message history wholesale, e.g. when loading a
// session from storage. Messages must already be in conversational order.
func (s *Session) Restore(messages []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make([]Message, len(messages))
	copy(s.messages, messages)
}

// Touch bumps the Updated timestamp without changing the history.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Updated = time.Now().UTC()
}

// SetTitle replaces the session title.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Title = title
	s.Updated = time.Now().UTC()
}

// DeriveTitle produces a session title from the first user message,
// clamping to TitleMaxLen runes with an ellipsis. Blank input falls back
// to a generic title.
func DeriveTitle(userMessage string) string {
	t := strings.TrimSpace(userMessage)
	if t == "" {
		return "New Chat"
	}
	runes := []rune(t)
	if len(runes) <= TitleMaxLen {
		return t
	}
	return string(runes[:TitleMaxLen]) + "..."
}
