package agent

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ziadkadry99/concierge/internal/tools"
)

// Decision is the routing outcome for an assistant turn.
type Decision string

const (
	InvokeTool      Decision = "invoke_tool"
	RespondDirectly Decision = "respond_directly"
)

// Keys recognized in free-text JSON emitted by models without native tool
// calling, in order of preference.
var (
	toolNameKeys     = []string{"tool", "name"}
	toolArgKeys      = []string{"tool_input", "arguments"}
	directAnswerKeys = []string{"answer", "final_answer", "response"}
)

// Router decides whether an assistant turn invokes tools or answers the
// guest, recovering tool calls written as JSON in the text.
type Router struct {
	registry *tools.Registry
	logger   *slog.Logger
	newID    func() string
}

// NewRouter creates a router that accepts the tools in registry.
func NewRouter(registry *tools.Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry: registry,
		logger:   logger,
		newID:    func() string { return "call_" + uuid.NewString() },
	}
}

// Route inspects turn and returns it, possibly rewritten, with the decision.
func (r *Router) Route(turn Turn) (Turn, Decision) {
	if len(turn.ToolRequests) > 0 {
		unknown := r.unknownTools(turn.ToolRequests)
		if len(unknown) == 0 {
			return turn, InvokeTool
		}
		r.logger.Warn("model requested unknown tools, ignoring structured calls", "tools", unknown)
		turn.ToolRequests = nil
	}

	obj, ok := firstJSONObject(turn.Text)
	if !ok {
		return turn, RespondDirectly
	}

	if name, args, ok := r.textToolCall(obj); ok {
		r.logger.Info("recovered tool call from text", "tool", name)
		turn.ToolRequests = []ToolRequest{{ID: r.newID(), ToolName: name, Arguments: args}}
		turn.Text = ""
		return turn, InvokeTool
	}

	for _, key := range directAnswerKeys {
		if answer, isString := obj[key].(string); isString {
			turn.Text = answer
			break
		}
	}
	return turn, RespondDirectly
}

func (r *Router) unknownTools(reqs []ToolRequest) []string {
	var unknown []string
	for _, req := range reqs {
		if !r.registry.Has(req.ToolName) {
			unknown = append(unknown, req.ToolName)
		}
	}
	return unknown
}

func (r *Router) textToolCall(obj map[string]any) (string, map[string]any, bool) {
	var name string
	for _, key := range toolNameKeys {
		if s, isString := obj[key].(string); isString && s != "" {
			name = s
			break
		}
	}
	if name == "" || !r.registry.Has(name) {
		return "", nil, false
	}
	for _, key := range toolArgKeys {
		if args, isMap := obj[key].(map[string]any); isMap {
			return name, args, true
		}
	}
	return "", nil, false
}

// firstJSONObject returns the first balanced {...} span in text that
// decodes as a JSON object. Braces inside string literals are ignored.
func firstJSONObject(text string) (map[string]any, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end := matchBrace(text, start)
		if end < 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err == nil && obj != nil {
			return obj, true
		}
	}
	return nil, false
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
