// Package agent runs the concierge conversation loop: it invokes the model,
// routes its output to tools or to the guest, executes tools, and
// checkpoints each thread between cycles.
package agent

// TurnKind identifies a turn variant.
type TurnKind string

const (
	TurnUser       TurnKind = "user"
	TurnAssistant  TurnKind = "assistant"
	TurnToolResult TurnKind = "tool_result"
)

// ToolRequest is one tool invocation asked for by the model.
type ToolRequest struct {
	ID        string         `json:"id"`
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

// Turn is one entry in a thread. Which fields are meaningful depends on Kind:
// user turns carry Text; assistant turns carry Text and ToolRequests; tool
// result turns carry Text (the result), ToolRequestID and ToolName.
type Turn struct {
	Kind          TurnKind
	Text          string
	ToolRequests  []ToolRequest
	ToolRequestID string
	ToolName      string
}

// UserTurn returns a turn holding a guest message.
func UserTurn(text string) Turn {
	return Turn{Kind: TurnUser, Text: text}
}

// AssistantTurn returns a model turn. No requests means the turn is terminal.
func AssistantTurn(text string, requests ...ToolRequest) Turn {
	return Turn{Kind: TurnAssistant, Text: text, ToolRequests: requests}
}

// ToolResultTurn returns the outcome of the request with the given id.
func ToolResultTurn(requestID, toolName, result string) Turn {
	return Turn{Kind: TurnToolResult, Text: result, ToolRequestID: requestID, ToolName: toolName}
}

// Terminal reports whether t is an assistant turn that requests no tools.
func (t Turn) Terminal() bool {
	return t.Kind == TurnAssistant && len(t.ToolRequests) == 0
}

// BookingContext is slot-filling state kept alongside the turn log.
type BookingContext struct {
	// PendingSlot is the ISO-8601 start time last confirmed available.
	PendingSlot          string `json:"pending_slot,omitempty"`
	GuestName            string `json:"guest_name,omitempty"`
	AwaitingConfirmation bool   `json:"awaiting_confirmation"`
}

// Empty reports whether no booking state is held.
func (b BookingContext) Empty() bool {
	return b.PendingSlot == "" && b.GuestName == "" && !b.AwaitingConfirmation
}

// Thread is one conversation.
type Thread struct {
	ID      string
	Turns   []Turn
	Booking BookingContext
}

// NewThread returns an empty thread.
func NewThread(id string) *Thread {
	return &Thread{ID: id}
}

// Append adds turns to the end of the log.
func (t *Thread) Append(turns ...Turn) {
	t.Turns = append(t.Turns, turns...)
}

// Last returns the most recent turn.
func (t *Thread) Last() (Turn, bool) {
	if len(t.Turns) == 0 {
		return Turn{}, false
	}
	return t.Turns[len(t.Turns)-1], true
}

// LastAssistantText returns the text of the most recent assistant turn.
func (t *Thread) LastAssistantText() string {
	for i := len(t.Turns) - 1; i >= 0; i-- {
		if t.Turns[i].Kind == TurnAssistant {
			return t.Turns[i].Text
		}
	}
	return ""
}

// Clone returns a deep copy so a failed run can be discarded.
func (t *Thread) Clone() *Thread {
	c := &Thread{ID: t.ID, Booking: t.Booking, Turns: make([]Turn, len(t.Turns))}
	for i, turn := range t.Turns {
		if turn.ToolRequests != nil {
			reqs := make([]ToolRequest, len(turn.ToolRequests))
			copy(reqs, turn.ToolRequests)
			turn.ToolRequests = reqs
		}
		c.Turns[i] = turn
	}
	return c
}
