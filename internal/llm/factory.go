package llm

import (
	"fmt"
	"os"
)

const defaultOllamaHost = "http://localhost:11434"

// NewProvider creates a new LLM provider based on the given provider type and model.
// Supported provider types: "anthropic", "openai", "ollama", "openrouter", "minimax".
// baseURL overrides the endpoint for ollama and openai; it is ignored otherwise.
func NewProvider(providerType string, model string, baseURL string) (Provider, error) {
	switch providerType {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		return NewAnthropicProvider(apiKey, model), nil

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAICompatibleProvider("openai", baseURL, apiKey, model), nil

	case "openrouter":
		apiKey := os.Getenv("OPENROUTER_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable is not set")
		}
		return NewOpenRouterProvider(apiKey, model), nil

	case "minimax":
		apiKey := os.Getenv("MINIMAX_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("MINIMAX_API_KEY environment variable is not set")
		}
		return NewMinimaxProvider(apiKey, model), nil

	case "ollama":
		host := baseURL
		if host == "" {
			host = os.Getenv("OLLAMA_HOST")
		}
		if host == "" {
			host = defaultOllamaHost
		}
		return NewOllamaProvider(host, model), nil

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
