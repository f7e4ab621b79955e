package checkpoint

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ziadkadry99/concierge/internal/agent"
)

// recordVersion is bumped whenever the encoded layout changes. Records with
// a newer version are treated as unreadable.
const recordVersion = 1

type record struct {
	Version  int                  `json:"v"`
	ThreadID string               `json:"thread_id"`
	Turns    []turnRecord         `json:"turns"`
	Booking  agent.BookingContext `json:"booking"`
	SavedAt  time.Time            `json:"saved_at"`
}

type turnRecord struct {
	Type          agent.TurnKind      `json:"type"`
	Text          string              `json:"text"`
	ToolRequests  []agent.ToolRequest `json:"tool_requests,omitempty"`
	ToolRequestID string              `json:"tool_request_id,omitempty"`
	ToolName      string              `json:"tool_name,omitempty"`
}

func encode(t *agent.Thread, savedAt time.Time) ([]byte, error) {
	rec := record{
		Version:  recordVersion,
		ThreadID: t.ID,
		Turns:    make([]turnRecord, len(t.Turns)),
		Booking:  t.Booking,
		SavedAt:  savedAt.UTC(),
	}
	for i, turn := range t.Turns {
		rec.Turns[i] = turnRecord{
			Type:          turn.Kind,
			Text:          turn.Text,
			ToolRequests:  turn.ToolRequests,
			ToolRequestID: turn.ToolRequestID,
			ToolName:      turn.ToolName,
		}
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding thread: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing thread: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing thread: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(blob []byte) (*agent.Thread, error) {
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("opening compressed record: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing record: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if rec.Version < 1 || rec.Version > recordVersion {
		return nil, fmt.Errorf("unsupported record version %d", rec.Version)
	}

	t := &agent.Thread{ID: rec.ThreadID, Booking: rec.Booking}
	for _, tr := range rec.Turns {
		switch tr.Type {
		case agent.TurnUser, agent.TurnAssistant, agent.TurnToolResult:
		default:
			return nil, fmt.Errorf("unknown turn type %q", tr.Type)
		}
		t.Turns = append(t.Turns, agent.Turn{
			Kind:          tr.Type,
			Text:          tr.Text,
			ToolRequests:  tr.ToolRequests,
			ToolRequestID: tr.ToolRequestID,
			ToolName:      tr.ToolName,
		})
	}
	return t, nil
}
