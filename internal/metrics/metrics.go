// Package metrics records agent usage counters (tool calls, model calls,
// token counts and cost) to SQLite or Postgres.
package metrics

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Metric names recorded by the agent.
const (
	LLMCall      = "llm_call"
	LLMError     = "llm_error"
	InputTokens  = "input_tokens"
	OutputTokens = "output_tokens"
	CostUSD      = "cost_usd"
)

// ToolCalled returns the counter name for a tool invocation.
func ToolCalled(tool string) string { return "tool_called:" + tool }

// ToolReturned returns the counter name for a completed tool invocation.
func ToolReturned(tool string) string { return "tool_return:" + tool }

// Metric is a single observation.
type Metric struct {
	Timestamp time.Time
	LLM       string
	Name      string
	Value     float64
}

// Recorder accepts metrics. Implementations must not fail the caller;
// write errors are logged and dropped.
type Recorder interface {
	Record(ctx context.Context, m Metric)
}

// Total aggregates all observations of one metric for one model.
type Total struct {
	LLM    string
	Metric string
	Count  int
	Sum    float64
}

// Nop discards every metric.
type Nop struct{}

func (Nop) Record(context.Context, Metric) {}

// Memory keeps metrics in memory. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	metrics []Metric
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, metric Metric) {
	if metric.Timestamp.IsZero() {
		metric.Timestamp = time.Now()
	}
	m.mu.Lock()
	m.metrics = append(m.metrics, metric)
	m.mu.Unlock()
}

// All returns a copy of the recorded metrics in record order.
func (m *Memory) All() []Metric {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Metric(nil), m.metrics...)
}

// Sum returns the summed value of every observation named name.
func (m *Memory) Sum(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, metric := range m.metrics {
		if metric.Name == name {
			total += metric.Value
		}
	}
	return total
}

// Summary aggregates the recorded metrics per model and name.
func (m *Memory) Summary(context.Context) ([]Total, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey := make(map[[2]string]*Total)
	for _, metric := range m.metrics {
		key := [2]string{metric.LLM, metric.Name}
		t, ok := byKey[key]
		if !ok {
			t = &Total{LLM: metric.LLM, Metric: metric.Name}
			byKey[key] = t
		}
		t.Count++
		t.Sum += metric.Value
	}

	totals := make([]Total, 0, len(byKey))
	for _, t := range byKey {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].LLM != totals[j].LLM {
			return totals[i].LLM < totals[j].LLM
		}
		return totals[i].Metric < totals[j].Metric
	})
	return totals, nil
}
