package agent

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Placeholders substituted into the system prompt on every model call.
const (
	PlaceholderScratchpad  = "{{agent_scratchpad}}"
	PlaceholderCurrentDate = "{{current_date}}"
	PlaceholderTools       = "{{tools}}"
)

// DefaultPrompt is the system prompt used when no prompt file is configured.
const DefaultPrompt = `You are the hotel concierge assistant. You answer guest questions using tools. Be efficient and direct.

Current date and time: {{current_date}}

RULES:
1. Read the guest's message and decide whether a tool is needed.
2. If a tool is needed, call it immediately. Output only the tool call and nothing else.
3. If no tool is needed, answer directly.
4. After a tool returns, use its result to answer the guest concisely.

AVAILABLE TOOLS:
{{tools}}

- search: general questions about the hotel, its services other than the gym, policies, check-in and check-out times.
- check_availability: the mandatory first step for ANY gym question, including before booking.
- book_slot: ONLY when check_availability was already called, the guest confirmed the EXACT time, and you know the guest's full name. If anything is missing, ask for it.

If your model cannot emit native tool calls, reply with a single JSON object such as
{"tool": "check_availability", "tool_input": {"target_date": "YYYY-MM-DDT08:00:00"}}

CURRENT CONVERSATION CONTEXT:
{{agent_scratchpad}}

GYM BOOKING WORKFLOW:
1. Guest asks about the gym: call check_availability.
2. Tell the guest the available times. Ask which one they want and their name if unknown.
3. Guest picks a time and gives a name: call book_slot with the confirmed data.
4. Tell the guest the final result.`

// Prompt renders the system prompt template.
type Prompt struct {
	template string
}

// NewPrompt wraps a template. An empty template uses DefaultPrompt.
func NewPrompt(template string) *Prompt {
	if strings.TrimSpace(template) == "" {
		template = DefaultPrompt
	}
	return &Prompt{template: template}
}

// LoadPrompt reads a template from path, or returns the default prompt
// when path is empty.
func LoadPrompt(path string) (*Prompt, error) {
	if path == "" {
		return NewPrompt(""), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt file: %w", err)
	}
	return NewPrompt(string(data)), nil
}

// Render substitutes the placeholders.
func (p *Prompt) Render(scratchpad string, now time.Time, tools string) string {
	return strings.NewReplacer(
		PlaceholderScratchpad, scratchpad,
		PlaceholderCurrentDate, now.Format("2006-01-02T15:04:05"),
		PlaceholderTools, tools,
	).Replace(p.template)
}
