package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// NoResultsText is returned when the knowledge base has nothing relevant.
const NoResultsText = "No relevant information was found in the knowledge base for this query."

// SearchClient queries the retrieval service.
type SearchClient struct {
	baseURL   string
	limit     int
	threshold float64
	http      *http.Client
	logger    *slog.Logger
}

// NewSearchClient creates a client for the retrieval service at baseURL.
// limit and threshold apply when a request does not set its own.
func NewSearchClient(baseURL string, limit int, threshold float64, timeout time.Duration, logger *slog.Logger) *SearchClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		limit:     limit,
		threshold: threshold,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type searchRequest struct {
	Query          string  `json:"query"`
	Limit          int     `json:"limit"`
	ScoreThreshold float64 `json:"score_threshold"`
}

// SearchResult is a single passage returned by the retrieval service.
type SearchResult struct {
	Filename string  `json:"filename"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

type searchResponse struct {
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// Search runs a knowledge-base query and renders the passages as text.
// Zero limit or threshold falls back to the client defaults.
func (c *SearchClient) Search(ctx context.Context, query string, limit int, threshold float64) (string, error) {
	if limit <= 0 {
		limit = c.limit
	}
	if threshold <= 0 {
		threshold = c.threshold
	}

	status, body, err := doJSON(ctx, c.http, http.MethodPost, c.baseURL+"/search", searchRequest{
		Query:          query,
		Limit:          limit,
		ScoreThreshold: threshold,
	})
	if err != nil {
		return "", fmt.Errorf("rag search: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("rag search returned status %d: %s", status, snippet(body))
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding rag response: %w", err)
	}
	c.logger.Debug("rag search complete", "query", query, "results", len(resp.Results), "total", resp.TotalResults)

	return formatResults(resp.Results), nil
}

func formatResults(results []SearchResult) string {
	if len(results) == 0 {
		return NoResultsText
	}

	var sb strings.Builder
	sb.WriteString("Information retrieved from the knowledge base:\n\n")
	for i, r := range results {
		source := r.Filename
		if source == "" {
			source = "unknown source"
		}
		text := r.Text
		if text == "" {
			text = "content unavailable"
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[Result %d] Source: %s (Relevance: %.2f)\nContent: %s\n---", i+1, source, r.Score, text)
	}
	return sb.String()
}

// Health returns the status string reported by the retrieval service.
func (c *SearchClient) Health(ctx context.Context) (string, error) {
	status, body, err := doJSON(ctx, c.http, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "", fmt.Errorf("rag health: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("rag health returned status %d: %s", status, snippet(body))
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding rag health: %w", err)
	}
	return resp.Status, nil
}
