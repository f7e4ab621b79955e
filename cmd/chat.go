package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

const defaultCLIThread = "cli-conversation"

var chatThread string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the concierge in the terminal",
	Long: `Starts an interactive conversation on a single thread. Type "new" to
clear the conversation and start over, or "exit" / "quit" to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(false)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		engine, err := a.newEngine()
		if err != nil {
			return err
		}

		checkRAG(ctx, a)

		fmt.Printf("Concierge (%s/%s). Type \"new\" to start over, \"exit\" to quit.\n\n", cfg.LLM.Provider, cfg.LLM.Model)
		prompt := promptui.Prompt{Label: "You"}

		for {
			input, err := prompt.Run()
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				fmt.Println("Goodbye!")
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			input = strings.TrimSpace(input)
			switch strings.ToLower(input) {
			case "":
				continue
			case "exit", "quit":
				fmt.Println("Goodbye!")
				return nil
			case "new":
				if _, err := a.store.Clear(ctx, chatThread); err != nil {
					fmt.Fprintf(os.Stderr, "Could not reset the conversation: %v\n", err)
					continue
				}
				fmt.Println("Started a new conversation.")
				continue
			}

			reply, err := engine.Chat(ctx, chatThread, input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Printf("\nConcierge: %s\n\n", reply.Text)
		}
	},
}

// checkRAG warns when the knowledge-base service is not usable.
func checkRAG(ctx context.Context, a *app) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, err := a.search.Health(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(os.Stderr, "Warning: knowledge base at %s is unreachable: %v\n", a.cfg.Tools.RAGURL, err)
	case status != "healthy" && status != "degraded":
		fmt.Fprintf(os.Stderr, "Warning: knowledge base at %s reports status %q\n", a.cfg.Tools.RAGURL, status)
	}
}

func init() {
	chatCmd.Flags().StringVar(&chatThread, "thread", defaultCLIThread, "thread id to continue")
	rootCmd.AddCommand(chatCmd)
}
