// Package webresearch is the optional web-search capability AttendeeResearcher
// injects for its per-attendee research step (spec.md §4.7, §9 "web-search
// optional"). Grounded in the teacher's runbook GitHub HTTP client (retry,
// timeout) and its MCP executor's capability-injection/result-shaping idiom
// (pkg/runbook/github.go, pkg/mcp/executor.go): a single narrow interface an
// absent dependency degrades gracefully around, never an error.
package webresearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Result is one web-search hit.
type Result struct {
	Title   string
	URL     string
	Excerpt string
}

// Searcher is the single capability AttendeeResearcher depends on. A nil
// Searcher means web research is disabled; callers must check for nil
// rather than relying on a no-op implementation, so the "basic" vs "web"
// data-source tagging in §4.7 stays accurate.
type Searcher interface {
	Search(ctx context.Context, objective string, queries []string, maxResults int) ([]Result, error)
}

// HTTPSearcher calls a hosted web-search API (e.g. a Bing/SerpAPI-style
// JSON endpoint) over plain net/http — no generated SDK exists for this in
// the retrieved pack, so this follows the same hand-rolled-net/http
// precedent as internal/llmclient and internal/providerclients.
type HTTPSearcher struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewHTTPSearcher builds an HTTPSearcher. baseURL/apiKey come from
// config.WebResearchConfig; timeout defaults to 60s per spec.md §5.
func NewHTTPSearcher(baseURL, apiKey string, timeout time.Duration) *HTTPSearcher {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &HTTPSearcher{httpClient: &http.Client{Timeout: timeout}, baseURL: baseURL, apiKey: apiKey}
}

// Search runs every query in queries as a single provider call (spec.md
// §4.7: "run them in one provider call") and returns up to maxResults
// results total, ordered as the provider returned them.
func (s *HTTPSearcher) Search(ctx context.Context, objective string, queries []string, maxResults int) ([]Result, error) {
	body := map[string]any{
		"objective":  objective,
		"queries":    queries,
		"maxResults": maxResults,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("webresearch: encode request: %w", err)
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("webresearch: invalid base url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), jsonReader(payload))
	if err != nil {
		return nil, fmt.Errorf("webresearch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webresearch: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webresearch: status %d", resp.StatusCode)
	}

	var parsed struct {
		Results []Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("webresearch: decode response: %w", err)
	}
	return parsed.Results, nil
}
