package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/concierge/internal/agent"
)

type fakeChatter struct {
	reply string
	err   error
	seen  []string
}

func (f *fakeChatter) Chat(ctx context.Context, threadID, message string) (*agent.Reply, error) {
	f.seen = append(f.seen, threadID)
	if f.err != nil {
		return nil, f.err
	}
	return &agent.Reply{ThreadID: threadID, Text: f.reply}, nil
}

func dial(t *testing.T, d *Dashboard) *websocket.Conn {
	t.Helper()
	r := chi.NewRouter()
	d.RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg chatRequest) chatResponse {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp chatResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
}

func TestWebSocketMessageRendersMarkdown(t *testing.T) {
	chat := &fakeChatter{reply: "Your booking is **confirmed**.\n\n- Slot: 09:00"}
	conn := dial(t, New(chat, nil))

	resp := roundTrip(t, conn, chatRequest{Type: "message", Content: "book 9am for Ana"})
	if resp.Type != "response" {
		t.Fatalf("expected response type, got %q (%s)", resp.Type, resp.Content)
	}
	if resp.SessionID == "" {
		t.Error("expected a session id to be assigned")
	}
	if resp.Content != chat.reply {
		t.Errorf("content = %q", resp.Content)
	}
	if !strings.Contains(resp.HTML, "<strong>confirmed</strong>") || !strings.Contains(resp.HTML, "<li>") {
		t.Errorf("unexpected html %q", resp.HTML)
	}

	// The assigned id is reused when the client sends it back.
	resp2 := roundTrip(t, conn, chatRequest{Type: "message", SessionID: resp.SessionID, Content: "thanks"})
	if resp2.SessionID != resp.SessionID || chat.seen[1] != resp.SessionID {
		t.Errorf("session not reused: %q vs %q", resp2.SessionID, resp.SessionID)
	}
}

func TestWebSocketRawHTMLIsNotRendered(t *testing.T) {
	chat := &fakeChatter{reply: `<script>alert(1)</script>`}
	conn := dial(t, New(chat, nil))

	resp := roundTrip(t, conn, chatRequest{Type: "message", Content: "hi"})
	if strings.Contains(resp.HTML, "<script>") {
		t.Errorf("raw html passed through: %q", resp.HTML)
	}
}

func TestWebSocketStoreUnavailable(t *testing.T) {
	chat := &fakeChatter{err: fmt.Errorf("%w: locked", agent.ErrStoreUnavailable)}
	conn := dial(t, New(chat, nil))

	resp := roundTrip(t, conn, chatRequest{Type: "message", SessionID: "s1", Content: "hi"})
	if resp.Type != "error" || !strings.Contains(resp.Content, "session store unavailable") {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestWebSocketGenericFailure(t *testing.T) {
	conn := dial(t, New(&fakeChatter{err: errors.New("boom")}, nil))

	resp := roundTrip(t, conn, chatRequest{Type: "message", SessionID: "s1", Content: "hi"})
	if resp.Type != "error" || resp.Content != "processing failed" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestWebSocketNilAgent(t *testing.T) {
	conn := dial(t, New(nil, nil))

	resp := roundTrip(t, conn, chatRequest{Type: "message", Content: "hello"})
	if resp.Type != "error" || !strings.Contains(resp.Content, "agent not configured") {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestWebSocketEmptyContent(t *testing.T) {
	conn := dial(t, New(&fakeChatter{}, nil))

	resp := roundTrip(t, conn, chatRequest{Type: "message", Content: ""})
	if resp.Type != "error" {
		t.Errorf("expected error type, got %q", resp.Type)
	}
	if !strings.Contains(resp.Content, "content is required") {
		t.Errorf("expected content error, got %q", resp.Content)
	}
}

func TestWebSocketUnknownType(t *testing.T) {
	conn := dial(t, New(&fakeChatter{}, nil))

	resp := roundTrip(t, conn, chatRequest{Type: "unknown", Content: "hello"})
	if resp.Type != "error" {
		t.Errorf("expected error type, got %q", resp.Type)
	}
	if !strings.Contains(resp.Content, "unknown message type") {
		t.Errorf("expected unknown type error, got %q", resp.Content)
	}
}

func TestWebSocketReset(t *testing.T) {
	conn := dial(t, New(&fakeChatter{}, nil))

	first := roundTrip(t, conn, chatRequest{Type: "reset"})
	second := roundTrip(t, conn, chatRequest{Type: "reset"})
	if first.Type != "session" || first.SessionID == "" || first.SessionID == second.SessionID {
		t.Errorf("reset should hand out fresh ids: %+v, %+v", first, second)
	}
}

func TestServeIndex(t *testing.T) {
	r := chi.NewRouter()
	New(nil, nil).RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected text/html content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<title>Concierge</title>") {
		t.Error("expected HTML to contain the page title")
	}
}
