package llmclient

import (
	"context"
	"fmt"
	"strings"
)

// Response holds the fully-collected output of a streaming Generate call.
type Response struct {
	Text           string
	InputTokens    int
	OutputTokens   int
	TotalTokens    int
}

// CollectStream drains a chunk channel into a complete Response. Returns
// an error if an ErrorChunk is received.
func CollectStream(stream <-chan Chunk) (*Response, error) {
	resp := &Response{}
	var text strings.Builder

	for chunk := range stream {
		switch c := chunk.(type) {
		case *TextChunk:
			text.WriteString(c.Content)
		case *UsageChunk:
			resp.InputTokens = c.InputTokens
			resp.OutputTokens = c.OutputTokens
			resp.TotalTokens = c.TotalTokens
		case *ErrorChunk:
			return nil, fmt.Errorf("llm error: %s (code: %s, retryable: %v)", c.Message, c.Code, c.Retryable)
		}
	}

	resp.Text = text.String()
	return resp, nil
}

// Call performs a single non-streaming-shaped Generate call: it starts the
// stream and collects it into a Response, cancelling the producer if the
// caller returns early.
func Call(ctx context.Context, client Client, req Request) (*Response, error) {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := client.Generate(callCtx, req)
	if err != nil {
		return nil, fmt.Errorf("llmclient: generate failed: %w", err)
	}
	return CollectStream(stream)
}
