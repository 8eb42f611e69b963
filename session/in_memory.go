package session

import (
	"context"
	"sort"
	"sync"

	"github.com/dugongyete-ui/agent-manus/core"
)

// InMemoryStore is a volatile Store implementation holding sessions in a
// process local map. It is safe for concurrent access and best suited for
// tests, the chat REPL and ephemeral demo servers. Sessions are cloned on
// the way in and out so callers can never mutate internal state.
type InMemoryStore struct {
	mu         sync.RWMutex
	sessions   map[string]*core.Session
	executions map[string][]*core.ToolExecution
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:   make(map[string]*core.Session),
		executions: make(map[string][]*core.ToolExecution),
	}
}

// Create registers a new session. An empty id gets a generated one; an empty
// title defaults to "New Chat".
func (s *InMemoryStore) Create(_ context.Context, id, title string) (*core.Session, error) {
	if title == "" {
		title = "New Chat"
	}
	sess := core.NewSession(id, title)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return nil, ErrExists
	}
	s.sessions[sess.ID] = sess
	return sess.Clone(), nil
}

// Get returns a clone of the stored session including its messages.
func (s *InMemoryStore) Get(_ context.Context, id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Clone(), nil
}

// List returns session metadata sorted by last update, newest first.
func (s *InMemoryStore) List(_ context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]Info, 0, len(s.sessions))
	for _, sess := range s.sessions {
		infos = append(infos, Info{
			ID:           sess.ID,
			Title:        sess.Title,
			MessageCount: sess.Len(),
			Created:      sess.Created,
			Updated:      sess.Updated,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Updated.Equal(infos[j].Updated) {
			return infos[i].ID > infos[j].ID
		}
		return infos[i].Updated.After(infos[j].Updated)
	})
	return infos, nil
}

// SetTitle replaces the title of an existing session.
func (s *InMemoryStore) SetTitle(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.SetTitle(title)
	return nil
}

// Delete removes a session, its messages and its execution log.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	delete(s.executions, id)
	return nil
}

// AppendMessage adds one message to the session history.
func (s *InMemoryStore) AppendMessage(_ context.Context, sessionID string, msg core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.Append(msg)
	return nil
}

// Messages returns the session history in insertion order.
func (s *InMemoryStore) Messages(_ context.Context, sessionID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess.Messages(), nil
}

// AppendExecution records one tool execution, clamping the stored result.
func (s *InMemoryStore) AppendExecution(_ context.Context, sessionID string, exec *core.ToolExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	stored := *exec
	stored.SessionID = sessionID
	stored.Result = core.ClampResult(stored.Result)
	s.executions[sessionID] = append(s.executions[sessionID], &stored)
	sess.Touch()
	return nil
}

// Executions returns the tool execution log in dispatch order.
func (s *InMemoryStore) Executions(_ context.Context, sessionID string) ([]*core.ToolExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	src := s.executions[sessionID]
	out := make([]*core.ToolExecution, len(src))
	for i, e := range src {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
