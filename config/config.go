// Package config loads application configuration from an optional YAML
// file, a best-effort .env file, and environment variable overrides, in
// that order. Durations are expressed in seconds so config files stay
// plain numbers.
package config

import (
	"fmt"
	"time"

	"github.com/dugongyete-ui/agent-manus/logging"
	"github.com/dugongyete-ui/agent-manus/model"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Providers ProvidersConfig `yaml:"providers"`
	Models    ModelsConfig    `yaml:"models"`
	Loop      LoopConfig      `yaml:"loop"`
	Retry     RetryConfig     `yaml:"retry"`
	Context   ContextConfig   `yaml:"context"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address, host:port or :port.
	Addr string `yaml:"addr"`
	// RateLimit caps requests per client per window. Zero disables limiting.
	RateLimit int `yaml:"rate_limit"`
	// RateWindow is the sliding window in seconds.
	RateWindow int `yaml:"rate_window"`
}

// Window returns the rate limit window as a duration.
func (s ServerConfig) Window() time.Duration {
	return time.Duration(s.RateWindow) * time.Second
}

// DatabaseConfig locates the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// GatewayConfig points at the hosted model aggregator. An empty BaseURL
// means no gateway models are registered.
type GatewayConfig struct {
	BaseURL string `yaml:"base_url"`
	// Timeout bounds one gateway call in seconds, connect through last byte.
	Timeout float64 `yaml:"timeout"`
}

// RequestTimeout returns the per-call timeout as a duration.
func (g GatewayConfig) RequestTimeout() time.Duration {
	return time.Duration(g.Timeout * float64(time.Second))
}

// ProvidersConfig carries credentials for the native provider backends.
// Keys left empty disable the corresponding provider.
type ProvidersConfig struct {
	AnthropicAPIKey string `yaml:"anthropic_api_key,omitempty"`
	OpenAIAPIKey    string `yaml:"openai_api_key,omitempty"`
	OllamaBaseURL   string `yaml:"ollama_base_url,omitempty"`
}

// ModelEntry is one catalog row: a hosted model reachable through the
// gateway under its ID.
type ModelEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Provider    string `yaml:"provider"`
	Category    string `yaml:"category"`
	Description string `yaml:"description,omitempty"`
}

// Info converts the entry to registry metadata.
func (e ModelEntry) Info() model.Info {
	return model.Info{
		ID:          e.ID,
		Name:        e.Name,
		Provider:    e.Provider,
		Category:    model.Category(e.Category),
		Description: e.Description,
	}
}

// ModelsConfig names the default model and the gateway catalog.
type ModelsConfig struct {
	Default string       `yaml:"default"`
	Catalog []ModelEntry `yaml:"catalog"`
}

// Entry looks up a catalog entry by model ID.
func (m ModelsConfig) Entry(id string) (ModelEntry, bool) {
	for _, e := range m.Catalog {
		if e.ID == id {
			return e, true
		}
	}
	return ModelEntry{}, false
}

// LoopConfig bounds the reasoning loop and the runner.
type LoopConfig struct {
	// MaxIterations caps reasoning iterations per run. Zero means unlimited.
	MaxIterations int `yaml:"max_iterations"`
	// RunTimeout bounds one run in seconds. Zero disables the timeout.
	RunTimeout int `yaml:"run_timeout"`
	// MaxConcurrentRuns bounds runs in flight across all sessions.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs"`
}

// Timeout returns the run timeout as a duration.
func (l LoopConfig) Timeout() time.Duration {
	return time.Duration(l.RunTimeout) * time.Second
}

// RetryConfig shapes model call retries. Delays are seconds.
type RetryConfig struct {
	MaxRetries int     `yaml:"max_retries"`
	BaseDelay  float64 `yaml:"base_delay"`
	MaxDelay   float64 `yaml:"max_delay"`
	Factor     float64 `yaml:"backoff_factor"`
}

// Policy converts the section to a router retry policy with default jitter.
func (r RetryConfig) Policy() model.RetryPolicy {
	p := model.DefaultRetryPolicy()
	p.MaxRetries = r.MaxRetries
	p.BaseDelay = time.Duration(r.BaseDelay * float64(time.Second))
	p.MaxDelay = time.Duration(r.MaxDelay * float64(time.Second))
	p.Factor = r.Factor
	return p
}

// ContextConfig sizes the conversation context window.
type ContextConfig struct {
	MaxTokens      int `yaml:"max_tokens"`
	MemoryWindow   int `yaml:"memory_window"`
	SummarizeAfter int `yaml:"summarize_after"`
}

// WorkspaceConfig confines tool file access.
type WorkspaceConfig struct {
	Root string `yaml:"root"`
}

// LoggingConfig selects the log level and encoder.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LogLevel parses the configured level, defaulting to info.
func (l LoggingConfig) LogLevel() logging.LogLevel {
	switch l.Level {
	case "debug":
		return logging.LogLevelDebug
	case "warn":
		return logging.LogLevelWarn
	case "error":
		return logging.LogLevelError
	default:
		return logging.LogLevelInfo
	}
}

// DefaultModel is the catalog entry selected when nothing is configured.
const DefaultModel = "claude40opusthinking_labs"

// DefaultConfig returns the baseline configuration with the full hosted
// model catalog.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":5000",
			RateLimit:  60,
			RateWindow: 60,
		},
		Database: DatabaseConfig{
			Path: "data/agent-manus.db",
		},
		Gateway: GatewayConfig{
			Timeout: 120,
		},
		Models: ModelsConfig{
			Default: DefaultModel,
			Catalog: defaultCatalog(),
		},
		Loop: LoopConfig{
			MaxIterations:     10,
			RunTimeout:        180,
			MaxConcurrentRuns: 10,
		},
		Retry: RetryConfig{
			MaxRetries: 5,
			BaseDelay:  1,
			MaxDelay:   30,
			Factor:     2,
		},
		Context: ContextConfig{
			MaxTokens:      128000,
			MemoryWindow:   20,
			SummarizeAfter: 15,
		},
		Workspace: WorkspaceConfig{
			Root: "workspace",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// defaultCatalog lists the models the gateway hosts.
func defaultCatalog() []ModelEntry {
	return []ModelEntry{
		{ID: "gpt5_thinking", Name: "GPT-5 Thinking", Provider: "Perplexity", Category: "thinking",
			Description: "OpenAI GPT-5 dengan kemampuan reasoning mendalam"},
		{ID: "03", Name: "O3", Provider: "Perplexity", Category: "reasoning",
			Description: "OpenAI O3 reasoning model"},
		{ID: "o3pro", Name: "O3 Pro", Provider: "Perplexity", Category: "reasoning",
			Description: "OpenAI O3 Pro - reasoning lanjutan"},
		{ID: "claude40opus", Name: "Claude 4.0 Opus", Provider: "Perplexity", Category: "general",
			Description: "Anthropic Claude 4.0 Opus"},
		{ID: "claude40opusthinking", Name: "Claude 4.0 Opus Thinking", Provider: "Perplexity", Category: "thinking",
			Description: "Claude 4.0 Opus dengan mode thinking"},
		{ID: "claude41opusthinking", Name: "Claude 4.1 Opus Thinking", Provider: "Perplexity", Category: "thinking",
			Description: "Claude 4.1 Opus dengan mode thinking terbaru"},
		{ID: "claude45sonnet", Name: "Claude 4.5 Sonnet", Provider: "Perplexity", Category: "general",
			Description: "Claude 4.5 Sonnet - cepat dan efisien"},
		{ID: "claude45sonnetthinking", Name: "Claude 4.5 Sonnet Thinking", Provider: "Perplexity", Category: "thinking",
			Description: "Claude 4.5 Sonnet dengan mode thinking"},
		{ID: "grok4", Name: "Grok 4", Provider: "Perplexity", Category: "general",
			Description: "xAI Grok 4"},
		{ID: "o3_research", Name: "O3 Research", Provider: "Perplexity", Category: "research",
			Description: "OpenAI O3 optimized untuk riset"},
		{ID: "o3pro_research", Name: "O3 Pro Research", Provider: "Perplexity", Category: "research",
			Description: "OpenAI O3 Pro optimized untuk riset mendalam"},
		{ID: "claude40sonnetthinking_research", Name: "Claude 4.0 Sonnet Thinking Research", Provider: "Perplexity", Category: "research",
			Description: "Claude 4.0 Sonnet Thinking untuk riset"},
		{ID: "o3pro_labs", Name: "O3 Pro Labs", Provider: "Perplexity", Category: "labs",
			Description: "OpenAI O3 Pro edisi labs/eksperimental"},
		{ID: "claude40opusthinking_labs", Name: "Claude 4.0 Opus Thinking Labs", Provider: "Perplexity", Category: "labs",
			Description: "Claude 4.0 Opus Thinking edisi labs"},
		{ID: "r1", Name: "R1", Provider: "Perplexity", Category: "reasoning",
			Description: "DeepSeek R1 reasoning model"},
	}
}

// Validate checks structural invariants. Credentials are not required
// here; a config without any provider still serves the mock-backed paths.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit cannot be negative")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}
	if c.Models.Default == "" {
		return fmt.Errorf("models.default cannot be empty")
	}
	if len(c.Models.Catalog) > 0 {
		if _, ok := c.Models.Entry(c.Models.Default); !ok {
			return fmt.Errorf("models.default %q is not in the catalog", c.Models.Default)
		}
	}
	for _, e := range c.Models.Catalog {
		if e.ID == "" {
			return fmt.Errorf("models.catalog entries need an id")
		}
		if _, ok := model.CategoryDescriptions[model.Category(e.Category)]; !ok {
			return fmt.Errorf("models.catalog entry %q has unknown category %q", e.ID, e.Category)
		}
	}
	if c.Loop.MaxIterations < 0 {
		return fmt.Errorf("loop.max_iterations cannot be negative")
	}
	if c.Loop.MaxConcurrentRuns <= 0 {
		return fmt.Errorf("loop.max_concurrent_runs must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries cannot be negative")
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry delays must satisfy 0 < base_delay <= max_delay")
	}
	if c.Retry.Factor < 1 {
		return fmt.Errorf("retry.backoff_factor must be at least 1")
	}
	if c.Context.MaxTokens <= 0 || c.Context.MemoryWindow <= 0 || c.Context.SummarizeAfter <= 0 {
		return fmt.Errorf("context window sizes must be positive")
	}
	if c.Context.SummarizeAfter > c.Context.MemoryWindow {
		return fmt.Errorf("context.summarize_after cannot exceed context.memory_window")
	}
	return nil
}
