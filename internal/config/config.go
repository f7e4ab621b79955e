package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "CONCIERGE_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CONCIERGE_*). A double underscore
// separates nested keys: CONCIERGE_LLM__PROVIDER -> llm.provider.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized provider values.
var validProviders = map[ProviderType]bool{
	ProviderAnthropic:  true,
	ProviderOpenAI:     true,
	ProviderOllama:     true,
	ProviderOpenRouter: true,
	ProviderMiniMax:    true,
}

var validMetricsDrivers = map[MetricsDriver]bool{
	MetricsSQLite:   true,
	MetricsPostgres: true,
	MetricsNone:     true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be one of anthropic, openai, ollama, openrouter, minimax", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must be non-negative")
	}

	if err := validateURL("tools.rag_url", c.Tools.RAGURL); err != nil {
		return err
	}
	if err := validateURL("tools.gym_url", c.Tools.GymURL); err != nil {
		return err
	}
	if c.Tools.ServiceName == "" {
		return fmt.Errorf("tools.service_name is required")
	}
	if c.Tools.Timeout <= 0 {
		return fmt.Errorf("tools.timeout must be positive")
	}
	if c.Tools.SearchLimit <= 0 {
		return fmt.Errorf("tools.search_limit must be positive")
	}
	if c.Tools.ScoreThreshold < 0 || c.Tools.ScoreThreshold > 1 {
		return fmt.Errorf("tools.score_threshold must be between 0 and 1")
	}

	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be positive")
	}

	if c.Checkpoint.Path == "" {
		return fmt.Errorf("checkpoint.path is required")
	}
	if c.Checkpoint.TTL <= 0 {
		return fmt.Errorf("checkpoint.ttl must be positive")
	}

	if !validMetricsDrivers[c.Metrics.Driver] {
		return fmt.Errorf("invalid metrics.driver %q: must be one of sqlite, postgres, none", c.Metrics.Driver)
	}
	if c.Metrics.Driver == MetricsPostgres && c.Metrics.DSN == "" {
		return fmt.Errorf("metrics.dsn is required for the postgres driver")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute URL", field, raw)
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderOpenRouter:
		return "OPENROUTER_API_KEY"
	case ProviderMiniMax:
		return "MINIMAX_API_KEY"
	default:
		return ""
	}
}
