package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ziadkadry99/concierge/internal/llm"
	"github.com/ziadkadry99/concierge/internal/tools"
)

// scriptedProvider returns its responses in order, repeating the last one.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*llm.CompletionResponse
	errs      []error
	calls     []llm.CompletionRequest
	hook      func(ctx context.Context)
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	n := len(p.calls)
	p.calls = append(p.calls, req)
	hook := p.hook
	p.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	if n < len(p.errs) && p.errs[n] != nil {
		return nil, p.errs[n]
	}
	if len(p.responses) == 0 {
		return nil, errors.New("no scripted responses")
	}
	if n >= len(p.responses) {
		n = len(p.responses) - 1
	}
	return p.responses[n], nil
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func textResponse(text string) *llm.CompletionResponse {
	return &llm.CompletionResponse{Content: text, InputTokens: 10, OutputTokens: 5, Model: "test-model"}
}

func toolResponse(calls ...llm.ToolCall) *llm.CompletionResponse {
	return &llm.CompletionResponse{ToolCalls: calls, InputTokens: 10, OutputTokens: 5, Model: "test-model"}
}

// memStore is an in-memory Checkpointer with injectable failures.
type memStore struct {
	mu      sync.Mutex
	threads map[string]*Thread
	loadErr error
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{threads: make(map[string]*Thread)}
}

func (s *memStore) Load(_ context.Context, id string) (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	t, ok := s.threads[id]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (s *memStore) Save(_ context.Context, t *Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.threads[t.ID] = t.Clone()
	return nil
}

func (s *memStore) get(id string) *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads[id]
}

// testRegistry registers stub tools under the built-in names.
func testRegistry(t *testing.T, handlers map[string]tools.Handler) *tools.Registry {
	t.Helper()
	required := map[string][]string{
		tools.SearchToolName:       {"query"},
		tools.AvailabilityToolName: {"target_date"},
		tools.BookingToolName:      {"booking_date", "guest_name"},
	}
	var defs []tools.Definition
	for name, req := range required {
		h := handlers[name]
		if h == nil {
			h = func(ctx context.Context, args map[string]any) (string, error) { return name + " ok", nil }
		}
		defs = append(defs, tools.Definition{
			Name:        name,
			Description: "stub " + name,
			Schema:      []byte(`{"type":"object"}`),
			Required:    req,
			Handler:     h,
		})
	}
	r, err := tools.NewRegistry(defs...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}
