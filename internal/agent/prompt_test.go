package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPromptRender(t *testing.T) {
	p := NewPrompt("date={{current_date}}\n{{tools}}\n{{agent_scratchpad}}\n{{tools}}")
	now := time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)

	got := p.Render("ctx", now, "- search")
	want := "date=2025-07-01T09:30:00\n- search\nctx\n- search"
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestDefaultPromptHasPlaceholders(t *testing.T) {
	for _, ph := range []string{PlaceholderScratchpad, PlaceholderCurrentDate, PlaceholderTools} {
		if !strings.Contains(DefaultPrompt, ph) {
			t.Errorf("default prompt missing %s", ph)
		}
	}

	rendered := NewPrompt("").Render(NoBookingContext, time.Now(), "- search: x")
	if strings.Contains(rendered, "{{") {
		t.Errorf("unrendered placeholder left in prompt")
	}
}

func TestLoadPrompt(t *testing.T) {
	p, err := LoadPrompt("")
	if err != nil {
		t.Fatalf("LoadPrompt(\"\") error: %v", err)
	}
	if p.template != DefaultPrompt {
		t.Error("empty path should load the default prompt")
	}

	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("custom {{agent_scratchpad}}"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err = LoadPrompt(path)
	if err != nil {
		t.Fatalf("LoadPrompt() error: %v", err)
	}
	if got := p.Render("ctx", time.Now(), ""); got != "custom ctx" {
		t.Errorf("Render() = %q", got)
	}

	if _, err := LoadPrompt(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing prompt file")
	}
}
