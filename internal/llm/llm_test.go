package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
			Model:        "mock-model",
			FinishReason: "stop",
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// --- Tests ---

func TestMockProviderRecordsCalls(t *testing.T) {
	mock := NewMockProvider("test")
	ctx := context.Background()

	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	resp, err := mock.Complete(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}

	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}

	if mock.Calls[0].Model != "test-model" {
		t.Errorf("expected model 'test-model', got %q", mock.Calls[0].Model)
	}
}

func TestFactoryReturnsErrorForMissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("MINIMAX_API_KEY", "")

	providers := []string{"anthropic", "openai", "openrouter", "minimax"}
	for _, p := range providers {
		_, err := NewProvider(p, "some-model", "")
		if err == nil {
			t.Errorf("expected error for provider %q with missing API key", p)
		}
	}
}

func TestFactoryReturnsErrorForUnknownProvider(t *testing.T) {
	_, err := NewProvider("unknown", "some-model", "")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestFactoryCreatesOllamaWithDefaultHost(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	provider, err := NewProvider("ollama", "qwen3", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ollamaP, ok := provider.(*OllamaProvider)
	if !ok {
		t.Fatal("expected *OllamaProvider")
	}
	if ollamaP.baseURL != defaultOllamaHost {
		t.Errorf("expected default host, got %q", ollamaP.baseURL)
	}
}

func TestFactoryOllamaHostPrecedence(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://env-host:11434")

	p, err := NewProvider("ollama", "qwen3", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.(*OllamaProvider).baseURL; got != "http://env-host:11434" {
		t.Errorf("expected OLLAMA_HOST, got %q", got)
	}

	p, err = NewProvider("ollama", "qwen3", "http://configured:11434/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.(*OllamaProvider).baseURL; got != "http://configured:11434" {
		t.Errorf("expected configured base URL, got %q", got)
	}
}

func TestFactoryProviderNames(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Setenv("MINIMAX_API_KEY", "test-key")

	for _, name := range []string{"anthropic", "openai", "openrouter", "minimax", "ollama"} {
		provider, err := NewProvider(name, "some-model", "")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if provider.Name() != name {
			t.Errorf("expected name %q, got %q", name, provider.Name())
		}
	}
}

func TestRateLimiterPassesThrough(t *testing.T) {
	mock := NewMockProvider("test")
	rl := NewRateLimitedProvider(mock, 60)

	ctx := context.Background()
	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	resp, err := rl.Complete(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}
	if rl.Name() != "test" {
		t.Errorf("expected name 'test', got %q", rl.Name())
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	mock := NewMockProvider("test")
	if p := NewRateLimitedProvider(mock, 0); p != Provider(mock) {
		t.Error("rpm 0 should return the provider unwrapped")
	}
}

func TestRateLimiterLimitsRequests(t *testing.T) {
	mock := NewMockProvider("test")
	// Allow only 2 requests per minute.
	rl := NewRateLimitedProvider(mock, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	req := CompletionRequest{
		Model:    "test-model",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}

	// First two should succeed immediately.
	for i := 0; i < 2; i++ {
		_, err := rl.Complete(ctx, req)
		if err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	// Third should block and eventually fail due to context timeout.
	_, err := rl.Complete(ctx, req)
	if err == nil {
		t.Error("expected error due to rate limiting + context timeout")
	}
	if mock.CallCount() != 2 {
		t.Errorf("expected 2 calls to reach the provider, got %d", mock.CallCount())
	}
}

func TestRateLimiterRefills(t *testing.T) {
	mock := NewMockProvider("test")
	rl := NewRateLimitedProvider(mock, 60).(*RateLimitedProvider)

	clock := time.Unix(0, 0)
	rl.now = func() time.Time { return clock }
	rl.lastFill = clock
	rl.tokens = 0

	if ok, delay := rl.take(); ok || delay != time.Second {
		t.Fatalf("take() = %v, %s; want false, 1s", ok, delay)
	}
	clock = clock.Add(time.Second)
	if ok, _ := rl.take(); !ok {
		t.Error("expected a token after one second at 60 rpm")
	}
}

func TestEstimateCostKnownModels(t *testing.T) {
	for _, model := range []string{"claude-sonnet-4-5-20250929", "gpt-4o", "gpt-4o-mini-2024-07-18", "MiniMax-M2.5"} {
		if cost := EstimateCost(model, 1000, 500); cost <= 0 {
			t.Errorf("EstimateCost(%q) = %f, expected > 0", model, cost)
		}
	}
}

func TestEstimateCostLongestPrefix(t *testing.T) {
	mini := EstimateCost("gpt-4o-mini-2024-07-18", 1_000_000, 0)
	if mini < 0.14 || mini > 0.16 {
		t.Errorf("expected gpt-4o-mini pricing, got $%.2f", mini)
	}
}

func TestEstimateCostUnknownModel(t *testing.T) {
	for _, model := range []string{"unknown-model", "qwen3", ""} {
		if cost := EstimateCost(model, 1000, 500); cost != 0 {
			t.Errorf("expected 0 for %q, got %f", model, cost)
		}
	}
}

func TestEstimateCostAccuracy(t *testing.T) {
	// claude-sonnet-4-5: $3/1M input, $15/1M output
	cost := EstimateCost("claude-sonnet-4-5-20250929", 1_000_000, 1_000_000)
	expected := 18.0
	if cost < expected-0.01 || cost > expected+0.01 {
		t.Errorf("expected cost ~$%.2f, got $%.2f", expected, cost)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hi", 1},
		{"hello world!!", 3},
		{"a longer piece of text that has more characters", 11},
	}

	for _, tt := range tests {
		got := EstimateTokens(tt.text)
		if got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestDecodeArguments(t *testing.T) {
	if got := decodeArguments([]byte(`{"query":"hours"}`)); got["query"] != "hours" {
		t.Errorf("unexpected args %v", got)
	}
	for _, raw := range []string{"", "not json", "null", "[1,2]"} {
		got := decodeArguments([]byte(raw))
		if got == nil || len(got) != 0 {
			t.Errorf("decodeArguments(%q) = %v, want empty map", raw, got)
		}
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "b"},
	})
	if system != "a\n\nb" {
		t.Errorf("system = %q", system)
	}
	if len(rest) != 1 || rest[0].Role != RoleUser {
		t.Errorf("rest = %+v", rest)
	}
}

func TestOllamaToolCalls(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"model": "qwen3",
			"message": {"role": "assistant", "content": "", "tool_calls": [
				{"function": {"name": "check_availability", "arguments": {"target_date": "2025-06-01"}}},
				{"function": {"name": "search_documents", "arguments": "{\"query\":\"hours\"}"}}
			]},
			"done": true,
			"done_reason": "stop",
			"prompt_eval_count": 12,
			"eval_count": 7
		}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "qwen3")
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "be helpful"},
			{Role: RoleUser, Content: "is June 1 free?"},
		},
		Tools: []ToolSchema{{Name: "check_availability", Parameters: json.RawMessage(`{"type":"object"}`)}},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	if got.Model != "qwen3" || len(got.Tools) != 1 || got.Tools[0].Function.Name != "check_availability" {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(resp.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Arguments["target_date"] != "2025-06-01" {
		t.Errorf("object arguments not decoded: %v", resp.ToolCalls[0].Arguments)
	}
	if resp.ToolCalls[1].Arguments["query"] != "hours" {
		t.Errorf("string arguments not decoded: %v", resp.ToolCalls[1].Arguments)
	}
	if !strings.HasPrefix(resp.ToolCalls[0].ID, "call_") || resp.ToolCalls[0].ID == resp.ToolCalls[1].ID {
		t.Errorf("expected distinct synthesized ids, got %q and %q", resp.ToolCalls[0].ID, resp.ToolCalls[1].ID)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 7 {
		t.Errorf("unexpected usage %d/%d", resp.InputTokens, resp.OutputTokens)
	}
}

func TestOllamaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "missing").Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestOpenAICompatibleToolCalls(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_abc",
						"type": "function",
						"function": {"name": "book_slot", "arguments": "{\"target_date\":\"2025-06-01T10:00:00\",\"guest_name\":\"Ana\"}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 30, "completion_tokens": 9, "total_tokens": 39}
		}`)
	}))
	defer srv.Close()

	p := NewOpenAICompatibleProvider("openai", srv.URL, "test-key", "gpt-4o-mini")
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleUser, Content: "book me"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_prev", Name: "check_availability", Arguments: map[string]any{"target_date": "2025-06-01"}}}},
			{Role: RoleTool, ToolCallID: "call_prev", Name: "check_availability", Content: "available"},
		},
		Tools: []ToolSchema{{Name: "book_slot", Description: "Book", Parameters: json.RawMessage(`{"type":"object","properties":{}}`)}},
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	msgs, _ := got["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages on the wire, got %d", len(msgs))
	}
	toolMsg, _ := msgs[2].(map[string]any)
	if toolMsg["tool_call_id"] != "call_prev" {
		t.Errorf("tool message lost its call id: %v", toolMsg)
	}
	if tools, _ := got["tools"].([]any); len(tools) != 1 {
		t.Errorf("expected 1 tool on the wire, got %v", got["tools"])
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.ID != "call_abc" || call.Name != "book_slot" || call.Arguments["guest_name"] != "Ana" {
		t.Errorf("unexpected tool call %+v", call)
	}
	if resp.FinishReason != "tool_calls" || resp.InputTokens != 30 || resp.OutputTokens != 9 {
		t.Errorf("unexpected response metadata %+v", resp)
	}
}

func TestAnthropicMessagesFoldToolResults(t *testing.T) {
	msgs := toAnthropicMessages([]Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{
			{ID: "a", Name: "search_documents", Arguments: map[string]any{"query": "x"}},
			{ID: "b", Name: "search_documents", Arguments: map[string]any{"query": "y"}},
		}},
		{Role: RoleTool, ToolCallID: "a", Content: "r1"},
		{Role: RoleTool, ToolCallID: "b", Content: "r2"},
		{Role: RoleAssistant, Content: "done"},
	})

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	results := msgs[2].Content
	if len(results) != 2 {
		t.Fatalf("expected tool results folded into one message, got %d blocks", len(results))
	}
	if results[0].OfToolResult == nil || results[0].OfToolResult.ToolUseID != "a" {
		t.Errorf("unexpected first result block %+v", results[0])
	}
}

func TestAnthropicSchema(t *testing.T) {
	schema, err := toAnthropicSchema(json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	props, ok := schema.Properties.(map[string]any)
	if !ok || props["query"] == nil {
		t.Errorf("unexpected properties %v", schema.Properties)
	}
	if _, err := toAnthropicSchema(json.RawMessage(`nope`)); err == nil {
		t.Error("expected error for invalid schema")
	}
}

func TestRoles(t *testing.T) {
	if RoleSystem != "system" || RoleUser != "user" || RoleAssistant != "assistant" || RoleTool != "tool" {
		t.Error("unexpected role values")
	}
}
