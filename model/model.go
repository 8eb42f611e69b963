package model

import (
	"context"
	"fmt"
	"sync"
)

// Category groups models by capability so clients can filter the catalog.
type Category string

const (
	// CategoryThinking marks models with deep deliberate reasoning modes.
	CategoryThinking Category = "thinking"
	// CategoryReasoning marks models optimized for logical inference.
	CategoryReasoning Category = "reasoning"
	// CategoryGeneral marks general purpose models.
	CategoryGeneral Category = "general"
	// CategoryResearch marks models optimized for research and analysis.
	CategoryResearch Category = "research"
	// CategoryLabs marks experimental or early-access models.
	CategoryLabs Category = "labs"
)

// CategoryDescriptions holds the display text served alongside the catalog.
var CategoryDescriptions = map[Category]string{
	CategoryThinking:  "Model dengan kemampuan reasoning/thinking mendalam",
	CategoryReasoning: "Model optimized untuk penalaran logis",
	CategoryGeneral:   "Model serbaguna untuk berbagai tugas",
	CategoryResearch:  "Model optimized untuk riset dan analisis",
	CategoryLabs:      "Model eksperimental/labs terbaru",
}

// Request captures the normalized model input produced by the agent loop.
type Request struct {
	System string `json:"system,omitempty"` // system prompt prepended to the conversation
	Prompt string `json:"prompt"`           // flattened conversation text
	Stream bool   `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
type Response struct {
	Content      string      `json:"content"`
	Partial      bool        `json:"partial"` // Indicates if this is a partial response
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Provider    string   `json:"provider"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
}

// Model is the minimal interface required by the router and agent loop to
// drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Outcome scripts one MockModel call: either Text is returned or Err raised.
type Outcome struct {
	Text string
	Err  error
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Calls consume scripted outcomes in order (the last outcome repeats); with
// no script, canned per-prompt responses or a generic echo are used.
type MockModel struct {
	info      Info
	responses map[string]string
	outcomes  []Outcome
	calls     int
	mu        sync.Mutex
}

// NewMockModel constructs a MockModel.
func NewMockModel(id, name string) *MockModel {
	return &MockModel{
		info: Info{
			ID:       id,
			Name:     name,
			Provider: "mock",
			Category: CategoryGeneral,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// WithCategory overrides the catalog category reported by Info.
func (m *MockModel) WithCategory(c Category) *MockModel {
	m.info.Category = c
	return m
}

// Script queues outcomes consumed one per Generate call, in order.
func (m *MockModel) Script(outcomes ...Outcome) *MockModel {
	m.outcomes = append(m.outcomes, outcomes...)
	return m
}

// Calls returns how many times Generate has been invoked.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockModel) next(prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.outcomes) > 0 {
		idx := m.calls - 1
		if idx >= len(m.outcomes) {
			idx = len(m.outcomes) - 1
		}
		o := m.outcomes[idx]
		return o.Text, o.Err
	}
	if full, ok := m.responses[prompt]; ok {
		return full, nil
	}
	return fmt.Sprintf("Mock response to: %s", prompt), nil
}

// Generate implements Model; emits optional streaming chunks then the final
// response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		full, err := m.next(req.Prompt)
		if err != nil {
			errCh <- err
			return
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Content: string(r), Partial: true}:
				}
			}
		}
		respCh <- Response{Content: full, FinishReason: "stop"}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
