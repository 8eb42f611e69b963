// Package gateway implements model.Model over the streaming LLM gateway.
//
// The gateway multiplexes many hosted models behind a single SSE endpoint:
// requests POST {"text", "provider", "model"} to <base>/stream and the
// response arrives as "data:" frames terminated by a [DONE] marker. Frames
// carry either a JSON-quoted text chunk, a JSON object with a content/text/
// message field, or raw text. All extracted text is sanitized before it is
// passed on.
package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dugongyete-ui/agent-manus/logging"
	"github.com/dugongyete-ui/agent-manus/model"
)

// DefaultTimeout bounds a single request including the full stream read.
const DefaultTimeout = 120 * time.Second

const doneMarker = "[DONE]"

// Options configures a gateway-backed model.
type Options struct {
	// Provider is the upstream provider label sent with each request.
	Provider string
	// Timeout bounds the whole call, connect through last byte.
	Timeout time.Duration
	// HTTPClient overrides the default client, e.g. for tests.
	HTTPClient *http.Client
	// Logger receives request and decode diagnostics.
	Logger logging.Logger
}

// Model is one catalog entry bound to the gateway's stream endpoint.
type Model struct {
	info      model.Info
	streamURL string
	client    *http.Client
	provider  string
	logger    logging.Logger
}

// New creates a gateway model for a catalog entry. apiBase is the gateway
// root; the stream endpoint is derived from it.
func New(apiBase string, info model.Info, optFns ...func(o *Options)) *Model {
	opts := Options{
		Provider: info.Provider,
		Timeout:  DefaultTimeout,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Model{
		info:      info,
		streamURL: strings.TrimRight(apiBase, "/") + "/stream",
		client:    client,
		provider:  opts.Provider,
		logger:    opts.Logger,
	}
}

// Info implements model.Model.
func (m *Model) Info() model.Info { return m.info }

// Generate implements model.Model. It performs a single gateway call;
// retries and fallback rotation are the router's job.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		body, err := m.open(ctx, req)
		if err != nil {
			errCh <- err
			return
		}
		defer body.Close()

		if err := m.consume(ctx, body, req.Stream, respCh); err != nil {
			errCh <- err
		}
	}()
	return respCh, errCh
}

type streamPayload struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// open posts the request and returns the response body on a 200, or a
// typed provider error otherwise.
func (m *Model) open(ctx context.Context, req model.Request) (io.ReadCloser, error) {
	payload := streamPayload{
		Text:     flatten(req),
		Provider: m.provider,
		Model:    m.info.ID,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode gateway payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.streamURL, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	m.logger.Debug("gateway request", "url", m.streamURL, "model", m.info.ID)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		pe := model.NewProviderError(m.provider, m.info.ID, 0, err.Error())
		pe.Retryable = true // connection errors are transient
		return nil, pe
	}

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		pe := model.NewProviderError(m.provider, m.info.ID, resp.StatusCode, strings.TrimSpace(string(detail)))
		pe.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		m.logger.Warn("gateway error response",
			"status", resp.StatusCode, "model", m.info.ID, "retry_after", pe.RetryAfter.String())
		return nil, pe
	}
	return resp.Body, nil
}

// consume reads SSE frames until [DONE] or EOF, emitting partial chunks
// when streaming and always a final response with the full text.
func (m *Model) consume(ctx context.Context, body io.Reader, stream bool, respCh chan<- model.Response) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var full strings.Builder
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == doneMarker {
			break
		}

		text := decodeFrame(data)
		if text == "" {
			continue
		}
		full.WriteString(text)
		if stream {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case respCh <- model.Response{Content: text, Partial: true}:
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		pe := model.NewProviderError(m.provider, m.info.ID, 0, "stream interrupted: "+err.Error())
		pe.Retryable = true
		return pe
	}

	respCh <- model.Response{Content: full.String(), FinishReason: "stop"}
	return nil
}

// flatten joins the system prompt and the conversation text into the single
// text field the gateway accepts.
func flatten(req model.Request) string {
	if req.System == "" {
		return req.Prompt
	}
	return req.System + "\n\nUser: " + req.Prompt
}

// decodeFrame extracts display text from one SSE data payload. Frames may
// be a JSON-quoted string (possibly wrapping another JSON document), a JSON
// object keyed by content, text or message, or plain text.
func decodeFrame(data string) string {
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return Sanitize(data)
	}

	switch t := v.(type) {
	case string:
		var inner any
		if err := json.Unmarshal([]byte(t), &inner); err == nil {
			if obj, ok := inner.(map[string]any); ok {
				return objectText(obj)
			}
		}
		return Sanitize(t)
	case map[string]any:
		return objectText(t)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return Sanitize(string(raw))
	}
}

// objectText pulls the first non-empty content, text or message field from
// a frame object, falling back to the whole object as JSON.
func objectText(obj map[string]any) string {
	for _, key := range []string{"content", "text", "message"} {
		val, ok := obj[key]
		if !ok || val == nil {
			continue
		}
		if s, ok := val.(string); ok {
			if s != "" {
				return Sanitize(s)
			}
			continue
		}
		raw, err := json.Marshal(val)
		if err != nil {
			continue
		}
		return Sanitize(string(raw))
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return ""
	}
	return Sanitize(string(raw))
}

// parseRetryAfter reads a Retry-After header in seconds. HTTP-date values
// are ignored.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
