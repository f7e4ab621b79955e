package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/ziadkadry99/concierge/internal/metrics"
	"github.com/ziadkadry99/concierge/internal/tools"
)

const defaultMaxToolErrorLen = 300

// Executor runs tool requests against the registry. Every request yields
// exactly one result turn; failures become result text for the model.
type Executor struct {
	registry  *tools.Registry
	timeout   time.Duration
	maxErrLen int
	metrics   metrics.Recorder
	llmLabel  string
	logger    *slog.Logger
}

// NewExecutor creates an executor. timeout bounds each handler call and
// maxErrLen bounds the error text passed back to the model.
func NewExecutor(registry *tools.Registry, timeout time.Duration, maxErrLen int, rec metrics.Recorder, llmLabel string, logger *slog.Logger) *Executor {
	if maxErrLen <= 0 {
		maxErrLen = defaultMaxToolErrorLen
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry:  registry,
		timeout:   timeout,
		maxErrLen: maxErrLen,
		metrics:   rec,
		llmLabel:  llmLabel,
		logger:    logger,
	}
}

// Execute runs reqs sequentially and returns their results in request order.
func (e *Executor) Execute(ctx context.Context, reqs []ToolRequest) []Turn {
	return lo.Map(reqs, func(req ToolRequest, _ int) Turn {
		return ToolResultTurn(req.ID, req.ToolName, e.run(ctx, req))
	})
}

func (e *Executor) run(ctx context.Context, req ToolRequest) string {
	e.record(ctx, metrics.ToolCalled(req.ToolName))
	defer e.record(ctx, metrics.ToolReturned(req.ToolName))

	def, ok := e.registry.Get(req.ToolName)
	if !ok {
		e.logger.Warn("unknown tool requested", "tool", req.ToolName)
		return fmt.Sprintf("Error: unknown tool %q. Available tools: %s.", req.ToolName, strings.Join(e.registry.Names(), ", "))
	}

	if missing := def.MissingArguments(req.Arguments); len(missing) > 0 {
		e.logger.Info("tool request missing arguments", "tool", req.ToolName, "missing", missing)
		return fmt.Sprintf("Error: missing required argument(s) for %s: %s. Call the tool again with all required arguments.",
			req.ToolName, strings.Join(missing, ", "))
	}

	start := time.Now()
	result, err := e.call(ctx, def, req.Arguments)
	if err != nil {
		e.logger.Warn("tool call failed", "tool", req.ToolName, "error", err, "elapsed", time.Since(start))
		return fmt.Sprintf("Error calling tool %s: %s", req.ToolName, sanitizeError(err.Error(), e.maxErrLen))
	}
	e.logger.Debug("tool call complete", "tool", req.ToolName, "elapsed", time.Since(start), "result_len", len(result))
	return result
}

// call invokes the handler under the per-call timeout, converting a panic
// into an error.
func (e *Executor) call(ctx context.Context, def tools.Definition, args map[string]any) (result string, err error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	if args == nil {
		args = map[string]any{}
	}
	return def.Handler(ctx, args)
}

func (e *Executor) record(ctx context.Context, name string) {
	e.metrics.Record(context.WithoutCancel(ctx), metrics.Metric{Timestamp: time.Now(), LLM: e.llmLabel, Name: name, Value: 1})
}

// sanitizeError collapses whitespace and control characters to single
// spaces and truncates to maxLen runes.
func sanitizeError(s string, maxLen int) string {
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r < 0x20 || r == 0x7f
	}), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// IsToolError reports whether a tool result text describes a failed call.
func IsToolError(result string) bool {
	return strings.HasPrefix(result, "Error")
}
