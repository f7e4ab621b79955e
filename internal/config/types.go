package config

import "time"

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderOllama     ProviderType = "ollama"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderMiniMax    ProviderType = "minimax"
)

// MetricsDriver selects where agent metrics are written.
type MetricsDriver string

const (
	MetricsSQLite   MetricsDriver = "sqlite"
	MetricsPostgres MetricsDriver = "postgres"
	MetricsNone     MetricsDriver = "none"
)

// Config is the top-level concierge configuration, corresponding to .concierge.yml.
type Config struct {
	LLM        LLMConfig        `yaml:"llm" koanf:"llm"`
	Tools      ToolsConfig      `yaml:"tools" koanf:"tools"`
	Agent      AgentConfig      `yaml:"agent" koanf:"agent"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" koanf:"checkpoint"`
	Metrics    MetricsConfig    `yaml:"metrics" koanf:"metrics"`
	Server     ServerConfig     `yaml:"server" koanf:"server"`
}

// LLMConfig selects and tunes the language model.
type LLMConfig struct {
	Provider          ProviderType  `yaml:"provider" koanf:"provider"`
	Model             string        `yaml:"model" koanf:"model"`
	BaseURL           string        `yaml:"base_url" koanf:"base_url"`
	Temperature       float64       `yaml:"temperature" koanf:"temperature"`
	MaxTokens         int           `yaml:"max_tokens" koanf:"max_tokens"`
	RequestsPerMinute int           `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout" koanf:"timeout"`
}

// ToolsConfig holds the endpoints of the search and booking collaborators.
type ToolsConfig struct {
	RAGURL         string        `yaml:"rag_url" koanf:"rag_url"`
	GymURL         string        `yaml:"gym_url" koanf:"gym_url"`
	ServiceName    string        `yaml:"service_name" koanf:"service_name"`
	Timeout        time.Duration `yaml:"timeout" koanf:"timeout"`
	SearchLimit    int           `yaml:"search_limit" koanf:"search_limit"`
	ScoreThreshold float64       `yaml:"score_threshold" koanf:"score_threshold"`
}

// AgentConfig tunes the graph controller.
type AgentConfig struct {
	MaxIterations   int    `yaml:"max_iterations" koanf:"max_iterations"`
	PromptFile      string `yaml:"prompt_file" koanf:"prompt_file"`
	MaxToolErrorLen int    `yaml:"max_tool_error_len" koanf:"max_tool_error_len"`
}

// CheckpointConfig controls session persistence.
type CheckpointConfig struct {
	Path          string        `yaml:"path" koanf:"path"`
	TTL           time.Duration `yaml:"ttl" koanf:"ttl"`
	PruneInterval time.Duration `yaml:"prune_interval" koanf:"prune_interval"`
}

// MetricsConfig controls the metrics sink. An empty DSN with the sqlite
// driver reuses the checkpoint database.
type MetricsConfig struct {
	Driver MetricsDriver `yaml:"driver" koanf:"driver"`
	DSN    string        `yaml:"dsn" koanf:"dsn"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
