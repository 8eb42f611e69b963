package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dugongyete-ui/agent-manus/logging"
	"github.com/dugongyete-ui/agent-manus/model"
)

// clearEnv neutralizes every variable the loader consults so tests see
// only what they set themselves.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AGENT_CONFIG", "AGENT_ADDR", "PORT", "AGENT_RATE_LIMIT",
		"AGENT_DB_PATH", "AGENT_GATEWAY_URL", "ANTHROPIC_API_KEY",
		"OPENAI_API_KEY", "OLLAMA_HOST", "AGENT_MODEL",
		"AGENT_MAX_ITERATIONS", "AGENT_RUN_TIMEOUT",
		"AGENT_MAX_CONCURRENT_RUNS", "AGENT_WORKSPACE",
		"AGENT_LOG_LEVEL", "AGENT_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, DefaultModel, cfg.Models.Default)
	assert.Len(t, cfg.Models.Catalog, 15)

	entry, ok := cfg.Models.Entry("claude40opusthinking_labs")
	require.True(t, ok)
	assert.Equal(t, "Claude 4.0 Opus Thinking Labs", entry.Name)
	assert.Equal(t, "labs", entry.Category)
	assert.Equal(t, "Perplexity", entry.Provider)
}

func TestDefaultCatalogCoversAllCategories(t *testing.T) {
	cfg := DefaultConfig()
	seen := map[string]int{}
	for _, e := range cfg.Models.Catalog {
		seen[e.Category]++
	}
	for category := range model.CategoryDescriptions {
		assert.NotZero(t, seen[string(category)], "category %s has no models", category)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Loop.MaxIterations)
	assert.Len(t, cfg.Models.Catalog, 15)
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", `
server:
  addr: ":7000"
models:
  default: grok4
retry:
  max_retries: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "grok4", cfg.Models.Default)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)

	// Sections the file does not mention keep their defaults.
	assert.Len(t, cfg.Models.Catalog, 15)
	assert.Equal(t, 128000, cfg.Context.MaxTokens)
	assert.InDelta(t, 1.0, cfg.Retry.BaseDelay, 0.001)
}

func TestLoadDefaultFileInWorkingDirectory(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, DefaultConfigFile, "server:\n  addr: \":7100\"\n")
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7100", cfg.Server.Addr)
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "alt.yaml", "server:\n  addr: \":7200\"\n")
	t.Setenv("AGENT_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7200", cfg.Server.Addr)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", "server:\n  addr: \":7000\"\n")
	t.Setenv("AGENT_ADDR", ":9000")
	t.Setenv("AGENT_MAX_ITERATIONS", "3")
	t.Setenv("AGENT_MODEL", "r1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Loop.MaxIterations)
	assert.Equal(t, "r1", cfg.Models.Default)
}

func TestLoadPortShorthand(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8123", cfg.Server.Addr)
}

func TestLoadExpandsEnvReferencesInFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_GATEWAY_URL", "https://gw.example.com")
	path := writeFile(t, t.TempDir(), "config.yaml", "gateway:\n  base_url: ${TEST_GATEWAY_URL}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example.com", cfg.Gateway.BaseURL)
}

func TestLoadDotEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv only fills variables that are absent, so drop the cleared
	// placeholder; t.Setenv already registered the restore.
	os.Unsetenv("AGENT_MODEL")
	dir := t.TempDir()
	writeFile(t, dir, ".env", "AGENT_MODEL=claude45sonnet\n")
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "claude45sonnet", cfg.Models.Default)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", "server: [oops\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "config.yaml", "models:\n  default: ghost_model\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "ghost_model")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "empty addr",
			mutate:  func(c *Config) { c.Server.Addr = "" },
			wantErr: "server.addr",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Server.RateLimit = -1 },
			wantErr: "rate_limit",
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "default not in catalog",
			mutate:  func(c *Config) { c.Models.Default = "nope" },
			wantErr: "not in the catalog",
		},
		{
			name: "unknown category",
			mutate: func(c *Config) {
				c.Models.Catalog = append(c.Models.Catalog, ModelEntry{ID: "x", Category: "quantum"})
			},
			wantErr: "unknown category",
		},
		{
			name:    "zero concurrent runs",
			mutate:  func(c *Config) { c.Loop.MaxConcurrentRuns = 0 },
			wantErr: "max_concurrent_runs",
		},
		{
			name:    "base delay above max",
			mutate:  func(c *Config) { c.Retry.BaseDelay = 60 },
			wantErr: "retry delays",
		},
		{
			name:    "backoff factor below one",
			mutate:  func(c *Config) { c.Retry.Factor = 0.5 },
			wantErr: "backoff_factor",
		},
		{
			name:    "summarize threshold above window",
			mutate:  func(c *Config) { c.Context.SummarizeAfter = 30 },
			wantErr: "summarize_after",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRetryPolicyConversion(t *testing.T) {
	policy := DefaultConfig().Retry.Policy()
	assert.Equal(t, 5, policy.MaxRetries)
	assert.Equal(t, time.Second, policy.BaseDelay)
	assert.Equal(t, 30*time.Second, policy.MaxDelay)
	assert.InDelta(t, 2.0, policy.Factor, 0.001)
	assert.NotNil(t, policy.Jitter)
}

func TestDurationHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3*time.Minute, cfg.Loop.Timeout())
	assert.Equal(t, time.Minute, cfg.Server.Window())
	assert.Equal(t, 2*time.Minute, cfg.Gateway.RequestTimeout())
}

func TestModelEntryInfo(t *testing.T) {
	entry := ModelEntry{ID: "r1", Name: "R1", Provider: "Perplexity", Category: "reasoning", Description: "d"}
	info := entry.Info()
	assert.Equal(t, "r1", info.ID)
	assert.Equal(t, model.CategoryReasoning, info.Category)
}

func TestLogLevelParsing(t *testing.T) {
	assert.Equal(t, logging.LogLevelDebug, LoggingConfig{Level: "debug"}.LogLevel())
	assert.Equal(t, logging.LogLevelWarn, LoggingConfig{Level: "warn"}.LogLevel())
	assert.Equal(t, logging.LogLevelError, LoggingConfig{Level: "error"}.LogLevel())
	assert.Equal(t, logging.LogLevelInfo, LoggingConfig{Level: ""}.LogLevel())
	assert.Equal(t, logging.LogLevelInfo, LoggingConfig{Level: "loud"}.LogLevel())
}
