package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is consulted when no path is given explicitly.
const DefaultConfigFile = "agent-manus.yaml"

// Load builds the configuration: defaults, then the YAML file, then
// environment overrides. path may be empty, in which case AGENT_CONFIG or
// DefaultConfigFile is tried and a missing file is not an error. An
// explicitly named file must exist.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over its contents.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		if p := os.Getenv("AGENT_CONFIG"); p != "" {
			path = p
			explicit = true
		} else {
			path = DefaultConfigFile
		}
	}
	if err := loadFromFile(cfg, path); err != nil {
		if explicit || !os.IsNotExist(err) {
			return nil, err
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromFile merges one YAML file into cfg. Environment references in
// the file ($VAR or ${VAR}) are expanded before decoding so secrets can
// stay out of the file itself.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv applies environment variable overrides on top of whatever
// the file set.
func loadFromEnv(cfg *Config) {
	cfg.Server.Addr = getEnv("AGENT_ADDR", cfg.Server.Addr)
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	cfg.Server.RateLimit = getEnvInt("AGENT_RATE_LIMIT", cfg.Server.RateLimit)

	cfg.Database.Path = getEnv("AGENT_DB_PATH", cfg.Database.Path)

	cfg.Gateway.BaseURL = getEnv("AGENT_GATEWAY_URL", cfg.Gateway.BaseURL)

	cfg.Providers.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.Providers.AnthropicAPIKey)
	cfg.Providers.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.Providers.OpenAIAPIKey)
	cfg.Providers.OllamaBaseURL = getEnv("OLLAMA_HOST", cfg.Providers.OllamaBaseURL)

	cfg.Models.Default = getEnv("AGENT_MODEL", cfg.Models.Default)

	cfg.Loop.MaxIterations = getEnvInt("AGENT_MAX_ITERATIONS", cfg.Loop.MaxIterations)
	cfg.Loop.RunTimeout = getEnvInt("AGENT_RUN_TIMEOUT", cfg.Loop.RunTimeout)
	cfg.Loop.MaxConcurrentRuns = getEnvInt("AGENT_MAX_CONCURRENT_RUNS", cfg.Loop.MaxConcurrentRuns)

	cfg.Workspace.Root = getEnv("AGENT_WORKSPACE", cfg.Workspace.Root)

	cfg.Logging.Level = getEnv("AGENT_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("AGENT_LOG_FORMAT", cfg.Logging.Format)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}
