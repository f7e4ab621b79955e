// Package api exposes the concierge over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ziadkadry99/concierge/internal/agent"
	"github.com/ziadkadry99/concierge/internal/checkpoint"
)

const (
	defaultSessionLimit = 20
	maxSessionLimit     = 100
	maxBodyBytes        = 64 << 10
)

// Chatter runs one guest message through the agent.
type Chatter interface {
	Chat(ctx context.Context, threadID, message string) (*agent.Reply, error)
}

// Sessions is the read and admin side of the checkpoint store.
type Sessions interface {
	Load(ctx context.Context, threadID string) (*agent.Thread, error)
	Info(ctx context.Context, threadID string) (*checkpoint.SessionInfo, error)
	ListRecent(ctx context.Context, limit int) ([]checkpoint.SessionInfo, error)
	Clear(ctx context.Context, threadID string) (bool, error)
	Healthy(ctx context.Context) error
}

// Retrieval reports the status of the knowledge-base service.
type Retrieval interface {
	Health(ctx context.Context) (string, error)
}

// Handler serves the JSON API.
type Handler struct {
	chat     Chatter
	sessions Sessions
	rag      Retrieval
	timeout  time.Duration
	logger   *slog.Logger
	newID    func() string
}

// NewHandler creates a handler. rag may be nil, in which case /health
// skips the retrieval check. timeout bounds each request; zero disables it.
func NewHandler(chat Chatter, sessions Sessions, rag Retrieval, timeout time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		chat:     chat,
		sessions: sessions,
		rag:      rag,
		timeout:  timeout,
		logger:   logger,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
	}
}

// RegisterRoutes mounts the API on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.timeout > 0 {
			r.Use(middleware.Timeout(h.timeout))
		}
		r.Post("/chat", h.handleChat)
		r.Get("/sessions", h.handleListSessions)
		r.Get("/sessions/{threadID}", h.handleGetSession)
		r.Delete("/sessions/{threadID}", h.handleDeleteSession)
		r.Get("/health", h.handleHealth)
	})
}

type chatRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = h.newID()
	}

	reply, err := h.chat.Chat(r.Context(), threadID, req.Message)
	if err != nil {
		h.writeChatError(w, threadID, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: reply.Text, ThreadID: reply.ThreadID})
}

func (h *Handler) writeChatError(w http.ResponseWriter, threadID string, err error) {
	switch {
	case errors.Is(err, agent.ErrStoreUnavailable):
		h.logger.Error("chat failed: store unavailable", "thread_id", threadID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "session store unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("chat timed out", "thread_id", threadID)
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		// The client went away; nothing useful can be written.
		h.logger.Debug("chat cancelled", "thread_id", threadID)
	default:
		h.logger.Error("chat failed", "thread_id", threadID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSessionLimit)
	}

	sessions, err := h.sessions.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing sessions failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "session store unavailable")
		return
	}
	if sessions == nil {
		sessions = []checkpoint.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

type sessionResponse struct {
	checkpoint.SessionInfo
	Booking agent.BookingContext `json:"booking"`
	Turns   []turnView           `json:"turns"`
}

type turnView struct {
	Type          agent.TurnKind      `json:"type"`
	Text          string              `json:"text"`
	ToolRequests  []agent.ToolRequest `json:"tool_requests,omitempty"`
	ToolRequestID string              `json:"tool_request_id,omitempty"`
	ToolName      string              `json:"tool_name,omitempty"`
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "threadID")
	ctx := r.Context()

	info, err := h.sessions.Info(ctx, id)
	if err != nil {
		h.writeStoreError(w, id, err)
		return
	}
	thread, err := h.sessions.Load(ctx, id)
	if err != nil {
		h.writeStoreError(w, id, err)
		return
	}
	if info == nil || thread == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	resp := sessionResponse{SessionInfo: *info, Booking: thread.Booking, Turns: make([]turnView, len(thread.Turns))}
	for i, t := range thread.Turns {
		resp.Turns[i] = turnView{
			Type:          t.Kind,
			Text:          t.Text,
			ToolRequests:  t.ToolRequests,
			ToolRequestID: t.ToolRequestID,
			ToolName:      t.ToolName,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "threadID")

	existed, err := h.sessions.Clear(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, id, err)
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, checkpoint.ErrInvalidThreadID) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("session store error", "thread_id", id, "error", err)
	writeError(w, http.StatusServiceUnavailable, "session store unavailable")
}

type healthResponse struct {
	Status     string `json:"status"`
	Checkpoint string `json:"checkpoint"`
	RAG        string `json:"rag,omitempty"`
}

// handleHealth answers 200 while the store is reachable. A failing
// retrieval service only marks the status degraded.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checkpoint: "ok"}
	code := http.StatusOK

	if err := h.sessions.Healthy(ctx); err != nil {
		resp.Status = "degraded"
		resp.Checkpoint = "unavailable"
		code = http.StatusServiceUnavailable
	}

	if h.rag != nil {
		status, err := h.rag.Health(ctx)
		switch {
		case err != nil:
			resp.Status = "degraded"
			resp.RAG = "unreachable"
		case status != "healthy":
			resp.Status = "degraded"
			resp.RAG = status
		default:
			resp.RAG = status
		}
	}

	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
