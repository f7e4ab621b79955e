package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/concierge/internal/agent"
)

// handlerFor runs the named tool through the executor. Results the
// executor reports as errors are flagged as tool errors to the caller.
func (s *Server) handlerFor(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		results := s.executor.Execute(ctx, []agent.ToolRequest{{
			ID:        "mcp_" + uuid.NewString(),
			ToolName:  name,
			Arguments: args,
		}})
		text := results[0].Text

		if agent.IsToolError(text) {
			return mcp.NewToolResultError(text), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}
