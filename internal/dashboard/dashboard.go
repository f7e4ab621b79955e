// Package dashboard serves a minimal browser chat with the concierge.
package dashboard

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ziadkadry99/concierge/internal/agent"
)

// Chatter runs one guest message through the agent.
type Chatter interface {
	Chat(ctx context.Context, threadID, message string) (*agent.Reply, error)
}

// Dashboard provides the chat page and its WebSocket endpoint.
type Dashboard struct {
	chat   Chatter
	md     goldmark.Markdown
	logger *slog.Logger
	newID  func() string
}

// New creates a Dashboard. chat may be nil, in which case messages are
// answered with an error.
func New(chat Chatter, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		chat: chat,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		logger: logger,
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/ws", d.handleWebSocket)
}
