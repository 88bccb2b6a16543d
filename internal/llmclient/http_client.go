package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/codeready-toolchain/prepd/internal/config"
)

// Retry/backoff bounds for a rate-limited or transiently-failing call,
// mirroring the jittered-backoff idiom in the teacher's MCP client.
const (
	RetryBackoffMin = 250 * time.Millisecond
	RetryBackoffMax = 2 * time.Second
)

// HTTPClient implements Client against an OpenAI-compatible chat-completions
// endpoint using the standard library's net/http and a server-sent-events
// reader, the same hand-rolled HTTP idiom the teacher uses for its own
// outbound integrations (no generated SDK client or gRPC stub available).
type HTTPClient struct {
	httpClient *http.Client
	defaultCfg *config.LLMProviderConfig
	logger     *slog.Logger
}

// NewHTTPClient builds an HTTPClient. defaultCfg is used whenever a Request
// doesn't specify its own Provider.
func NewHTTPClient(defaultCfg *config.LLMProviderConfig) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: 0}, // per-request timeout set via context
		defaultCfg: defaultCfg,
		logger:     slog.With("component", "llmclient"),
	}
}

// Close is a no-op for the stdlib http.Client, present to satisfy Client.
func (c *HTTPClient) Close() error { return nil }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate streams a chat completion. On a 429, a 5xx or a transport
// error it retries up to the provider's MaxRetries times, each after a
// jittered backoff, then emits a terminal ErrorChunk with Code
// "rate_limit". A Retry-After header on the response is not consulted.
func (c *HTTPClient) Generate(ctx context.Context, req Request) (<-chan Chunk, error) {
	cfg := req.Provider
	if cfg == nil {
		cfg = c.defaultCfg
	}
	if cfg == nil {
		return nil, fmt.Errorf("llmclient: no provider configured")
	}

	timeout := 60 * time.Second
	if cfg.RequestTimeout != "" {
		if d, err := time.ParseDuration(cfg.RequestTimeout); err == nil {
			timeout = d
		}
	}

	out := make(chan Chunk, 8)

	go func() {
		defer close(out)

		maxAttempts := cfg.MaxRetries + 1
		if maxAttempts < 1 {
			maxAttempts = 1
		}

		var lastErr error
		for attempt := 0; attempt < maxAttempts; attempt++ {
			if attempt > 0 {
				backoff := RetryBackoffMin + time.Duration(rand.Int64N(int64(RetryBackoffMax-RetryBackoffMin)))
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					out <- &ErrorChunk{Message: ctx.Err().Error(), Code: "cancelled"}
					return
				}
			}

			attemptCtx, cancel := context.WithTimeout(ctx, timeout)
			retryable, err := c.doStream(attemptCtx, cfg, req, out)
			cancel()
			if err == nil {
				return
			}
			lastErr = err
			if !retryable {
				out <- &ErrorChunk{Message: err.Error(), Retryable: false}
				return
			}
			c.logger.Warn("llm call failed, retrying",
				"attempt", attempt+1, "max_attempts", maxAttempts, "error", err)
		}

		out <- &ErrorChunk{Message: fmt.Sprintf("exhausted retries: %v", lastErr), Code: "rate_limit", Retryable: true}
	}()

	return out, nil
}

// doStream performs one HTTP attempt. It returns (retryable, err): err is
// nil on success (chunks already sent to out), retryable signals whether
// the caller should back off and try again.
func (c *HTTPClient) doStream(ctx context.Context, cfg *config.LLMProviderConfig, req Request, out chan<- Chunk) (bool, error) {
	messages := make([]chatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	maxTokens := cfg.MaxOutputTokens
	if req.MaxOutputTokens > 0 {
		maxTokens = req.MaxOutputTokens
	}

	body := chatRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Stream:      true,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		body.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("llmclient: marshal request: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("llmclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if apiKey := os.Getenv(cfg.APIKeyEnv); apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return true, fmt.Errorf("llmclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return true, fmt.Errorf("llmclient: provider returned %d: %s", resp.StatusCode, msg)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("llmclient: provider returned %d: %s", resp.StatusCode, msg)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Warn("llmclient: skipping unparseable SSE chunk", "error", err)
			continue
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				out <- &TextChunk{Content: choice.Delta.Content}
			}
		}
		if chunk.Usage != nil {
			out <- &UsageChunk{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
				TotalTokens:  chunk.Usage.TotalTokens,
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return true, fmt.Errorf("llmclient: reading stream: %w", err)
	}

	return false, nil
}
