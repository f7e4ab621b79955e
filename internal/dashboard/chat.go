package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/concierge/internal/agent"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type      string `json:"type"`       // "message" or "reset"
	SessionID string `json:"session_id"` // empty for new sessions
	Content   string `json:"content"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string `json:"type"` // "response", "session" or "error"
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	HTML      string `json:"html,omitempty"`
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			d.sendError(conn, "", "invalid message format")
			continue
		}

		switch req.Type {
		case "message":
			d.handleChatMessage(conn, r, req)
		case "reset":
			d.send(conn, chatResponse{Type: "session", SessionID: d.newID()})
		default:
			d.sendError(conn, req.SessionID, "unknown message type: "+req.Type)
		}
	}
}

func (d *Dashboard) handleChatMessage(conn *websocket.Conn, r *http.Request, req chatRequest) {
	if strings.TrimSpace(req.Content) == "" {
		d.sendError(conn, req.SessionID, "content is required")
		return
	}
	if d.chat == nil {
		d.sendError(conn, req.SessionID, "agent not configured")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = d.newID()
	}

	reply, err := d.chat.Chat(r.Context(), sessionID, req.Content)
	if err != nil {
		d.logger.Error("dashboard chat failed", "session_id", sessionID, "error", err)
		msg := "processing failed"
		if errors.Is(err, agent.ErrStoreUnavailable) {
			msg = "session store unavailable, please try again later"
		}
		d.sendError(conn, sessionID, msg)
		return
	}

	d.send(conn, chatResponse{
		Type:      "response",
		SessionID: sessionID,
		Content:   reply.Text,
		HTML:      d.render(reply.Text),
	})
}

// render converts a markdown reply to HTML, falling back to empty on error
// so the page shows the plain text instead.
func (d *Dashboard) render(text string) string {
	var buf bytes.Buffer
	if err := d.md.Convert([]byte(text), &buf); err != nil {
		d.logger.Warn("rendering reply failed", "error", err)
		return ""
	}
	return buf.String()
}

func (d *Dashboard) send(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		d.logger.Warn("websocket write failed", "error", err)
	}
}

func (d *Dashboard) sendError(conn *websocket.Conn, sessionID, message string) {
	d.send(conn, chatResponse{
		Type:      "error",
		SessionID: sessionID,
		Content:   message,
	})
}
