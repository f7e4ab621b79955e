package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result
// to path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to concierge! Let's configure the agent.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"ollama", "openai", "anthropic", "openrouter", "minimax"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.LLM.Provider = ProviderType(providerStr)

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Model",
		Default: DefaultModel(cfg.LLM.Provider),
	}
	if cfg.LLM.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Collaborator endpoints.
	ragPrompt := promptui.Prompt{
		Label:    "Knowledge search service URL",
		Default:  cfg.Tools.RAGURL,
		Validate: func(s string) error { return validateURL("rag_url", s) },
	}
	if cfg.Tools.RAGURL, err = ragPrompt.Run(); err != nil {
		return nil, fmt.Errorf("rag url: %w", err)
	}

	gymPrompt := promptui.Prompt{
		Label:    "Gym booking service URL",
		Default:  cfg.Tools.GymURL,
		Validate: func(s string) error { return validateURL("gym_url", s) },
	}
	if cfg.Tools.GymURL, err = gymPrompt.Run(); err != nil {
		return nil, fmt.Errorf("gym url: %w", err)
	}

	// 4. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			p, err := strconv.Atoi(s)
			if err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("invalid port")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Check for API key.
	if envVar := APIKeyEnvVar(cfg.LLM.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment (or .env) before starting the agent.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
