// Package ollama provides a model wrapper for a local or remote Ollama
// server, useful for running the agent fully offline.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/dugongyete-ui/agent-manus/model"
)

// Options configures the Ollama model adapter.
type Options struct {
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Category    model.Category
}

// Model wraps the Ollama chat API behind the generic model.Model interface.
type Model struct {
	client *api.Client
	opts   Options
}

// NewModel creates an Ollama model. The default base URL targets a local
// server.
func NewModel(optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		BaseURL:     "http://localhost:11434",
		Model:       "llama3.2",
		Temperature: 0.7,
		MaxTokens:   8192,
		Timeout:     120 * time.Second,
		Category:    model.CategoryGeneral,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	client := api.NewClient(baseURL, &http.Client{Timeout: opts.Timeout})
	return &Model{client: client, opts: opts}, nil
}

// Generate implements model.Model. Ollama always streams; when the caller
// did not ask for chunks only the final response is emitted.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		var messages []api.Message
		if req.System != "" {
			messages = append(messages, api.Message{Role: "system", Content: req.System})
		}
		messages = append(messages, api.Message{Role: "user", Content: req.Prompt})

		stream := true
		chatReq := &api.ChatRequest{
			Model:    m.opts.Model,
			Messages: messages,
			Stream:   &stream,
			Options: map[string]interface{}{
				"num_predict": m.opts.MaxTokens,
			},
		}
		if m.opts.Temperature > 0 {
			chatReq.Options["temperature"] = m.opts.Temperature
		}

		var full strings.Builder
		var usage *model.TokenUsage

		err := m.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content != "" {
				full.WriteString(resp.Message.Content)
				if req.Stream {
					select {
					case out <- model.Response{Content: resp.Message.Content, Partial: true}:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
			if resp.Done {
				usage = &model.TokenUsage{
					PromptTokens:     resp.PromptEvalCount,
					CompletionTokens: resp.EvalCount,
					TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
				}
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				errCh <- ctx.Err()
				return
			}
			pe := model.NewProviderError("ollama", m.opts.Model, 0, err.Error())
			pe.Retryable = true // local server may be starting up
			errCh <- pe
			return
		}

		out <- model.Response{Content: full.String(), FinishReason: "stop", Usage: usage}
	}()

	return out, errCh
}

// Info returns metadata describing this Ollama model.
func (m *Model) Info() model.Info {
	return model.Info{
		ID:       m.opts.Model,
		Name:     m.opts.Model,
		Provider: "ollama",
		Category: m.opts.Category,
	}
}
