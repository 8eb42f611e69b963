package model

import (
	"fmt"
	"sync"
)

// Registry holds the model catalog. Registration order defines the fallback
// rotation order.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Model)}
}

// Register adds a model under its Info().ID. Duplicate IDs are rejected.
func (r *Registry) Register(m Model) error {
	id := m.Info().ID
	if id == "" {
		return fmt.Errorf("model has empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[id]; exists {
		return fmt.Errorf("model %q already registered", id)
	}
	r.models[id] = m
	r.order = append(r.order, id)
	return nil
}

// Get returns the model registered under id.
func (r *Registry) Get(id string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	return m, ok
}

// Next returns the model following id in registration order, wrapping
// around. It returns false when id is unknown or no other model exists.
func (r *Registry) Next(id string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) < 2 {
		return nil, false
	}
	for i, candidate := range r.order {
		if candidate == id {
			next := r.order[(i+1)%len(r.order)]
			return r.models[next], true
		}
	}
	return nil, false
}

// IDs returns all model IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// List returns catalog entries in registration order, optionally filtered
// by category (empty category returns everything).
func (r *Registry) List(category Category) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		info := r.models[id].Info()
		if category != "" && info.Category != category {
			continue
		}
		infos = append(infos, info)
	}
	return infos
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// State tracks the process-wide model selection and per-model failure
// counters. It is shared by all sessions and safe for concurrent use.
type State struct {
	mu       sync.RWMutex
	current  string
	failures map[string]int
}

// NewState creates a State with the given initial selection.
func NewState(defaultModel string) *State {
	return &State{current: defaultModel, failures: make(map[string]int)}
}

// Current returns the selected model ID.
func (s *State) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Select switches the selected model ID.
func (s *State) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = id
}

// RecordFailure increments and returns the failure count for id.
func (s *State) RecordFailure(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id]++
	return s.failures[id]
}

// ResetFailures clears the failure counter for id after a success.
func (s *State) ResetFailures(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, id)
}

// Failures returns the current failure count for id.
func (s *State) Failures(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures[id]
}

// FailureSnapshot returns a copy of all failure counters, keyed by model ID.
func (s *State) FailureSnapshot() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.failures))
	for k, v := range s.failures {
		out[k] = v
	}
	return out
}
