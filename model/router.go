package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dugongyete-ui/agent-manus/logging"
)

// RouterOptions configures a Router.
type RouterOptions struct {
	// Policy controls per-model retry backoff.
	Policy RetryPolicy
	// Logger receives retry and rotation decisions.
	Logger logging.Logger
}

// Router drives generation against the currently selected model, retrying
// transient failures with backoff and rotating to fallback models when a
// model's retries are exhausted. Rotation is transparent to callers: they
// see only the eventual text or the final error.
type Router struct {
	registry *Registry
	state    *State
	opts     RouterOptions
}

// NewRouter creates a Router over a registry and shared selection state.
func NewRouter(registry *Registry, state *State, optFns ...func(o *RouterOptions)) *Router {
	opts := RouterOptions{
		Policy: DefaultRetryPolicy(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{registry: registry, state: state, opts: opts}
}

// Current returns catalog info for the selected model.
func (r *Router) Current() Info {
	id := r.state.Current()
	if m, ok := r.registry.Get(id); ok {
		return m.Info()
	}
	return Info{ID: id}
}

// Select switches the process-wide model selection. Unknown IDs are
// rejected.
func (r *Router) Select(id string) error {
	if _, ok := r.registry.Get(id); !ok {
		return fmt.Errorf("model %q not available", id)
	}
	r.state.Select(id)
	r.opts.Logger.Info("model selected", "model", id)
	return nil
}

// Models lists catalog entries, optionally filtered by category.
func (r *Router) Models(category Category) []Info {
	return r.registry.List(category)
}

// RetryStats returns per-model failure counters.
func (r *Router) RetryStats() map[string]int {
	return r.state.FailureSnapshot()
}

// Query sends a request and returns the complete response text, applying
// the full retry and rotation policy.
func (r *Router) Query(ctx context.Context, req Request) (string, error) {
	return r.dispatch(ctx, req, nil)
}

// Stream sends a request and forwards chunks to onChunk as they arrive,
// returning the accumulated text. Retries and rotation apply only until
// the first chunk is forwarded; after that a failure surfaces directly,
// since the client has already seen partial output.
func (r *Router) Stream(ctx context.Context, req Request, onChunk func(chunk string)) (string, error) {
	return r.dispatch(ctx, req, onChunk)
}

func (r *Router) dispatch(ctx context.Context, req Request, onChunk func(string)) (string, error) {
	id := r.state.Current()
	m, ok := r.registry.Get(id)
	if !ok {
		return "", fmt.Errorf("model %q not registered", id)
	}

	// Visit every other model at most once before giving up.
	rotations := r.registry.Len() - 1
	var lastErr error

	for hop := 0; ; hop++ {
		text, emitted, err := r.tryModel(ctx, m, req, onChunk)
		if err == nil {
			r.state.ResetFailures(m.Info().ID)
			return text, nil
		}
		lastErr = err

		if emitted || !IsRetryable(err) || ctx.Err() != nil || hop >= rotations {
			return text, err
		}

		next, ok := r.registry.Next(m.Info().ID)
		if !ok {
			break
		}
		r.opts.Logger.Warn("rotating to fallback model",
			"from", m.Info().ID, "to", next.Info().ID, "error", err.Error())
		m = next
		r.state.Select(m.Info().ID)
	}
	return "", lastErr
}

// tryModel runs up to 1+MaxRetries attempts against a single model with
// backoff between attempts.
func (r *Router) tryModel(ctx context.Context, m Model, req Request, onChunk func(string)) (string, bool, error) {
	id := m.Info().ID

	for attempt := 0; ; attempt++ {
		text, emitted, err := r.generate(ctx, m, req, onChunk)
		if err == nil {
			return text, emitted, nil
		}

		r.state.RecordFailure(id)
		if emitted || !IsRetryable(err) || ctx.Err() != nil || attempt >= r.opts.Policy.MaxRetries {
			return text, emitted, err
		}

		delay := r.opts.Policy.Delay(attempt, RetryAfterHint(err))
		r.opts.Logger.Warn("retrying model call",
			"model", id, "attempt", attempt+1, "max", r.opts.Policy.MaxRetries+1,
			"delay", delay.String(), "error", err.Error())
		if serr := sleepCtx(ctx, delay); serr != nil {
			return text, emitted, serr
		}
	}
}

// generate performs one model call, forwarding partial chunks to onChunk
// when streaming. It returns the full text, whether any chunk reached the
// caller, and the error if any.
func (r *Router) generate(ctx context.Context, m Model, req Request, onChunk func(string)) (string, bool, error) {
	req.Stream = onChunk != nil
	respCh, errCh := m.Generate(ctx, req)

	var acc strings.Builder
	var finalText string
	emitted := false
	sawFinal := false

	for resp := range respCh {
		if resp.Partial {
			acc.WriteString(resp.Content)
			if onChunk != nil && resp.Content != "" {
				onChunk(resp.Content)
				emitted = true
			}
			continue
		}
		finalText = resp.Content
		sawFinal = true
	}

	text := acc.String()
	if sawFinal && finalText != "" {
		text = finalText
	}
	if err := <-errCh; err != nil {
		return text, emitted, err
	}
	return text, emitted, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
