package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Hotel concierge agent with knowledge-base search and gym booking",
	Long: `Concierge answers guest questions from a knowledge base and books gym
slots. Each conversation is a thread that is checkpointed between turns,
so it can be resumed over HTTP, the browser dashboard, or the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnv(envFile, cmd.Flags().Changed("env-file"))
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".concierge.yml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with API keys")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadEnv loads a dotenv file without overriding variables already set. A
// missing default file is not an error.
func loadEnv(path string, explicit bool) error {
	if _, err := os.Stat(path); os.IsNotExist(err) && !explicit {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// newLogger returns a stderr logger. Server mode logs JSON.
func newLogger(json bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
