package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/concierge/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the search, check_availability and book_slot tools to other agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(false)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		srv, err := mcpserver.NewServer(a.registry, a.newExecutor("mcp"))
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}

		fmt.Fprintf(os.Stderr, "concierge MCP server started on stdio (tools=%v)\n", a.registry.Names())
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
