package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ziadkadry99/concierge/internal/agent"
	"github.com/ziadkadry99/concierge/internal/checkpoint"
	"github.com/ziadkadry99/concierge/internal/config"
	"github.com/ziadkadry99/concierge/internal/db"
	"github.com/ziadkadry99/concierge/internal/llm"
	"github.com/ziadkadry99/concierge/internal/metrics"
	"github.com/ziadkadry99/concierge/internal/tools"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `concierge init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// createLLMProviderFromConfig creates an LLM provider based on config
// settings, rate limited when requests_per_minute is set.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	p, err := llm.NewProvider(string(cfg.LLM.Provider), cfg.LLM.Model, cfg.LLM.BaseURL)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(p, cfg.LLM.RequestsPerMinute), nil
}

// app holds the dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *db.DB
	store    *checkpoint.Store
	recorder *metrics.SQLRecorder
	search   *tools.SearchClient
	registry *tools.Registry
}

// openApp opens the database, the metrics sink and the tool registry.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	database, err := db.Open(cfg.Checkpoint.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	recorder, err := metrics.Open(ctx, cfg.Metrics, database, logger.With("component", "metrics"))
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("opening metrics: %w", err)
	}

	search := tools.NewSearchClient(cfg.Tools.RAGURL, cfg.Tools.SearchLimit, cfg.Tools.ScoreThreshold, cfg.Tools.Timeout, logger.With("component", "rag"))
	gym := tools.NewGymClient(cfg.Tools.GymURL, cfg.Tools.ServiceName, cfg.Tools.Timeout, logger.With("component", "gym"))
	registry, err := tools.NewRegistry(tools.Builtins(search, gym)...)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("building tool registry: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       database,
		store:    checkpoint.NewStore(database, cfg.Checkpoint.TTL, logger.With("component", "checkpoint")),
		recorder: recorder,
		search:   search,
		registry: registry,
	}, nil
}

// metricsRecorder returns the recorder as an interface, mapping a disabled sink
// to a no-op.
func (a *app) metricsRecorder() metrics.Recorder {
	if a.recorder == nil {
		return metrics.Nop{}
	}
	return a.recorder
}

// newExecutor returns a tool executor for callers outside the agent loop.
func (a *app) newExecutor(label string) *agent.Executor {
	return agent.NewExecutor(a.registry, a.cfg.Tools.Timeout, a.cfg.Agent.MaxToolErrorLen, a.metricsRecorder(), label, a.logger.With("component", "executor"))
}

// newEngine builds the agent engine with the configured model and prompt.
func (a *app) newEngine() (*agent.Engine, error) {
	provider, err := createLLMProviderFromConfig(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	prompt := agent.NewPrompt("")
	if a.cfg.Agent.PromptFile != "" {
		if prompt, err = agent.LoadPrompt(a.cfg.Agent.PromptFile); err != nil {
			return nil, err
		}
	}

	return agent.New(agent.Options{
		Provider:    provider,
		Registry:    a.registry,
		Prompt:      prompt,
		Store:       a.store,
		Metrics:     a.metricsRecorder(),
		Logger:      a.logger,
		LLM:         a.cfg.LLM,
		Agent:       a.cfg.Agent,
		ToolTimeout: a.cfg.Tools.Timeout,
	})
}

func (a *app) Close() {
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			a.logger.Warn("closing metrics", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing database", "error", err)
	}
}
