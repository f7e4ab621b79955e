package llm

import (
	"encoding/json"
	"strings"
)

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolSchema describes a tool the model may call. Parameters is a JSON
// Schema object.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Message represents a single message in a conversation.
type Message struct {
	Role    Role
	Content string
	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []ToolCall
	// ToolCallID and Name are set on tool result messages.
	ToolCallID string
	Name       string
}

// CompletionRequest contains the parameters for an LLM completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Tools       []ToolSchema
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse contains the result of an LLM completion request.
// ToolCalls is empty when the model answered in plain text.
type CompletionResponse struct {
	Content      string
	ToolCalls    []ToolCall
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// splitSystem separates system messages from the conversation, joining
// them into one prompt for providers that take it out of band.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(system, "\n\n"), rest
}

// decodeArguments parses a JSON argument object. Malformed input yields an
// empty map so the executor reports the missing arguments to the model.
func decodeArguments(raw []byte) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

func encodeArguments(args map[string]any) []byte {
	if args == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(args)
	if err != nil {
		return []byte("{}")
	}
	return b
}
