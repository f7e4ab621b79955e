package tools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSearchFormatsResults(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/search" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"results":[
			{"filename":"faq.md","score":0.873,"text":"Breakfast is served from 7 to 10."},
			{"filename":"","score":0.5,"text":"The pool closes at 22:00."}
		],"total_results":2}`)
	}))
	defer srv.Close()

	c := NewSearchClient(srv.URL+"/", 3, 0.3, time.Second, nil)
	out, err := c.Search(context.Background(), "breakfast", 0, 0)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}

	if got.Query != "breakfast" || got.Limit != 3 || got.ScoreThreshold != 0.3 {
		t.Errorf("unexpected payload %+v", got)
	}
	for _, want := range []string{
		"[Result 1] Source: faq.md (Relevance: 0.87)\nContent: Breakfast is served from 7 to 10.\n---",
		"[Result 2] Source: unknown source (Relevance: 0.50)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSearchOverridesDefaults(t *testing.T) {
	var got searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"results":[]}`)
	}))
	defer srv.Close()

	out, err := NewSearchClient(srv.URL, 3, 0.3, time.Second, nil).Search(context.Background(), "spa", 5, 0.7)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if got.Limit != 5 || got.ScoreThreshold != 0.7 {
		t.Errorf("unexpected payload %+v", got)
	}
	if out != NoResultsText {
		t.Errorf("expected no-results text, got %q", out)
	}
}

func TestSearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index unavailable", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewSearchClient(srv.URL, 3, 0.3, time.Second, nil).Search(context.Background(), "spa", 0, 0)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestSearchHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `{"status":"healthy"}`)
	}))
	defer srv.Close()

	status, err := NewSearchClient(srv.URL, 3, 0.3, time.Second, nil).Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error: %v", err)
	}
	if status != "healthy" {
		t.Errorf("Health() = %q", status)
	}
}

func TestSearchHealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewSearchClient(url, 3, 0.3, time.Second, nil).Health(context.Background()); err == nil {
		t.Error("expected error for unreachable service")
	}
}
