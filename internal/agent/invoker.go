package agent

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/concierge/internal/config"
	"github.com/ziadkadry99/concierge/internal/llm"
	"github.com/ziadkadry99/concierge/internal/metrics"
	"github.com/ziadkadry99/concierge/internal/tools"
)

// ModelFailureText is the terminal reply used when the model cannot be reached.
const ModelFailureText = "I'm sorry, I had trouble reaching the language model and could not process your request. Please try again in a moment."

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Invoker makes one model call per invocation and normalizes the result
// into an assistant turn.
type Invoker struct {
	provider    llm.Provider
	registry    *tools.Registry
	prompt      *Prompt
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	metrics     metrics.Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewInvoker creates an invoker for the given provider and tool registry.
func NewInvoker(provider llm.Provider, registry *tools.Registry, prompt *Prompt, cfg config.LLMConfig, rec metrics.Recorder, logger *slog.Logger) *Invoker {
	if prompt == nil {
		prompt = NewPrompt("")
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		provider:    provider,
		registry:    registry,
		prompt:      prompt,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		metrics:     rec,
		logger:      logger,
		now:         time.Now,
	}
}

// Invoke asks the model for the next turn of thread. It never fails: a
// transport or model error yields a terminal apology turn.
func (i *Invoker) Invoke(ctx context.Context, thread *Thread) Turn {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	req := llm.CompletionRequest{
		Model:       i.model,
		Messages:    i.messages(thread),
		Tools:       i.registry.Schemas(),
		MaxTokens:   i.maxTokens,
		Temperature: i.temperature,
	}

	start := time.Now()
	i.record(ctx, metrics.LLMCall, 1)
	resp, err := i.provider.Complete(ctx, req)
	if err != nil {
		i.record(ctx, metrics.LLMError, 1)
		i.logger.Error("model call failed", "thread_id", thread.ID, "provider", i.provider.Name(), "error", err)
		return AssistantTurn(ModelFailureText)
	}

	i.record(ctx, metrics.InputTokens, float64(resp.InputTokens))
	i.record(ctx, metrics.OutputTokens, float64(resp.OutputTokens))
	model := resp.Model
	if model == "" {
		model = i.model
	}
	if cost := llm.EstimateCost(model, resp.InputTokens, resp.OutputTokens); cost > 0 {
		i.record(ctx, metrics.CostUSD, cost)
	}

	requests := make([]ToolRequest, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		args := tc.Arguments
		if args == nil {
			args = map[string]any{}
		}
		requests = append(requests, ToolRequest{ID: id, ToolName: tc.Name, Arguments: args})
	}

	i.logger.Debug("model call complete",
		"thread_id", thread.ID,
		"model", model,
		"tool_calls", len(requests),
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"elapsed", time.Since(start),
	)

	return AssistantTurn(stripThinking(resp.Content), requests...)
}

func (i *Invoker) messages(thread *Thread) []llm.Message {
	system := i.prompt.Render(RenderScratchpad(thread.Booking), i.now(), i.registry.Describe())
	msgs := make([]llm.Message, 0, len(thread.Turns)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})

	for _, t := range thread.Turns {
		switch t.Kind {
		case TurnUser:
			msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: t.Text})
		case TurnAssistant:
			m := llm.Message{Role: llm.RoleAssistant, Content: t.Text}
			for _, r := range t.ToolRequests {
				m.ToolCalls = append(m.ToolCalls, llm.ToolCall{ID: r.ID, Name: r.ToolName, Arguments: r.Arguments})
			}
			msgs = append(msgs, m)
		case TurnToolResult:
			msgs = append(msgs, llm.Message{
				Role:       llm.RoleTool,
				Content:    t.Text,
				ToolCallID: t.ToolRequestID,
				Name:       t.ToolName,
			})
		}
	}
	return msgs
}

// record writes a metric even when the call context has expired.
func (i *Invoker) record(ctx context.Context, name string, value float64) {
	i.metrics.Record(context.WithoutCancel(ctx), metrics.Metric{Timestamp: i.now(), LLM: i.model, Name: name, Value: value})
}

func stripThinking(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(s, ""))
}
