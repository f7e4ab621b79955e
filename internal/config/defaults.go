package config

import "time"

// defaultModels maps each provider to the model used when none is configured.
var defaultModels = map[ProviderType]string{
	ProviderAnthropic:  "claude-sonnet-4-5-20250929",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderOllama:     "qwen3",
	ProviderOpenRouter: "qwen/qwen3-32b",
	ProviderMiniMax:    "MiniMax-M2.5",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderOllama,
			Model:       defaultModels[ProviderOllama],
			Temperature: 0.05,
			MaxTokens:   1024,
			Timeout:     60 * time.Second,
		},
		Tools: ToolsConfig{
			RAGURL:         "http://localhost:8080",
			GymURL:         "http://localhost:8000",
			ServiceName:    "gimnasio",
			Timeout:        15 * time.Second,
			SearchLimit:    3,
			ScoreThreshold: 0.3,
		},
		Agent: AgentConfig{
			MaxIterations:   25,
			MaxToolErrorLen: 300,
		},
		Checkpoint: CheckpointConfig{
			Path:          ".concierge/concierge.db",
			TTL:           24 * time.Hour,
			PruneInterval: 10 * time.Minute,
		},
		Metrics: MetricsConfig{
			Driver: MetricsSQLite,
		},
		Server: ServerConfig{
			Port: 8081,
		},
	}
}

// DefaultModel returns the default model for the given provider.
// Returns the Ollama default if the provider is unknown.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderOllama]
}
