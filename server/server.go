package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dugongyete-ui/agent-manus/logging"
	"github.com/dugongyete-ui/agent-manus/runner"
	"github.com/dugongyete-ui/agent-manus/security"
)

// ShutdownTimeout bounds the graceful drain once the serve context ends.
const ShutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	// RateLimit caps requests per client per RateWindow. Zero disables
	// limiting.
	RateLimit int
	// RateWindow is the sliding rate limit window.
	RateWindow time.Duration
	// Logger receives request and stream diagnostics.
	Logger logging.Logger
}

// Server wires the HTTP surface to a runner. All state lives behind the
// runner (store, router, dispatcher); the server holds no state of its own
// beyond the rate limiter.
type Server struct {
	run     *runner.Runner
	opts    Options
	limiter *security.RateLimiter
}

// New creates a Server over a runner.
func New(run *runner.Runner, optFns ...func(o *Options)) *Server {
	opts := Options{
		RateWindow: time.Minute,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	s := &Server{run: run, opts: opts}
	if opts.RateLimit > 0 {
		s.limiter = security.NewRateLimiter(opts.RateLimit, opts.RateWindow)
	}
	return s
}

// Handler builds the chi router with the full API surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)
	if s.limiter != nil {
		r.Use(s.rateLimit)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Delete("/", s.handleDeleteSession)
				r.Patch("/", s.handleRenameSession)
				r.Get("/messages", s.handleMessages)
				r.Get("/tools", s.handleExecutions)
				r.Post("/chat/stream", s.handleChatStream)
				r.Get("/ws", s.handleChatWS)
			})
		})

		r.Route("/models", func(r chi.Router) {
			r.Get("/", s.handleListModels)
			r.Post("/select", s.handleSelectModel)
			r.Get("/stats", s.handleModelStats)
		})

		r.Get("/agent/status", s.handleAgentStatus)
	})

	return r
}

// ListenAndServe runs the server until ctx is canceled, then drains
// gracefully. Streaming responses have no write timeout; the runner's run
// timeout bounds them instead.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		// Canceling ctx cancels every in-flight request, which stops
		// active runs and lets Shutdown finish promptly.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.opts.Logger.Info("server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.opts.Logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"active_runs": len(s.run.ActiveRuns()),
	})
}

// logRequests emits one structured log line per completed request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.opts.Logger.Debug("http request",
			"method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "duration", time.Since(start).String())
	})
}

// rateLimit rejects clients over budget, keyed by remote IP.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientID(r)) {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID extracts the client address. RealIP middleware already stripped
// proxies; a bare IP without port is returned as-is.
func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(body io.Reader, dest any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

var (
	errStreamingUnsupported = errors.New("streaming not supported")
	errBadBody              = errors.New("invalid request body")
	errMessageRequired      = errors.New("Message is required")
)
