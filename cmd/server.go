package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/concierge/internal/api"
	"github.com/ziadkadry99/concierge/internal/checkpoint"
	"github.com/ziadkadry99/concierge/internal/dashboard"
	"github.com/ziadkadry99/concierge/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the concierge HTTP server",
	Long:  `Starts the concierge HTTP API (/chat, /sessions, /health) and the browser chat dashboard.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(true)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		engine, err := a.newEngine()
		if err != nil {
			return err
		}

		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			AllowAll:       cfg.Server.AllowAllOrigins,
			RequestTimeout: cfg.LLM.Timeout * 3,
		}, logger)

		r := srv.Router()
		api.NewHandler(engine, a.store, a.search, srv.RequestTimeout(), logger.With("component", "api")).RegisterRoutes(r)
		dashboard.New(engine, logger.With("component", "dashboard")).RegisterRoutes(r)

		go runJanitor(ctx, a.store, cfg.Checkpoint.PruneInterval, logger)

		go func() {
			<-ctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown", "error", err)
			}
		}()

		logger.Info("concierge server starting",
			"version", Version,
			"port", cfg.Server.Port,
			"provider", cfg.LLM.Provider,
			"model", cfg.LLM.Model,
			"database", a.db.Path(),
		)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	},
}

// runJanitor prunes expired checkpoints until ctx is done.
func runJanitor(ctx context.Context, store *checkpoint.Store, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := store.Prune(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("pruning checkpoints failed", "error", err)
			}
		}
	}
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8081, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
