// Package mcp exposes the concierge tools to other agents over the Model
// Context Protocol.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/concierge/internal/agent"
	"github.com/ziadkadry99/concierge/internal/tools"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that serves every registered tool through
// the agent's executor, so validation and error reporting match chat runs.
type Server struct {
	registry *tools.Registry
	executor *agent.Executor
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(registry *tools.Registry, executor *agent.Executor) (*Server, error) {
	s := &Server{
		registry: registry,
		executor: executor,
	}

	s.mcp = server.NewMCPServer(
		"concierge",
		Version,
		server.WithToolCapabilities(false),
	)

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerTools adds every registry definition to the MCP server.
func (s *Server) registerTools() error {
	for _, name := range s.registry.Names() {
		def, _ := s.registry.Get(name)
		tool, err := toolFor(def)
		if err != nil {
			return err
		}
		s.mcp.AddTool(tool, s.handlerFor(name))
	}
	return nil
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
