// Package llmclient is the LLM calling abstraction used by every
// LLM-driven pipeline stage: classification, purpose detection, relevance
// extraction, attendee research, and brief synthesis.
package llmclient

import (
	"context"

	"github.com/codeready-toolchain/prepd/internal/config"
)

// Role identifies the speaker of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation sent to the LLM.
type Message struct {
	Role    Role
	Content string
}

// Request is a single Generate call.
type Request struct {
	// Provider selects which configured LLM endpoint handles the call.
	// Nil means the caller's configured default.
	Provider *config.LLMProviderConfig

	Messages []Message

	// MaxOutputTokens overrides Provider.MaxOutputTokens when non-zero.
	MaxOutputTokens int

	// Temperature is left at the provider's default when zero — most
	// structured-extraction prompts in this pipeline want deterministic
	// output, so callers only set it for tasks that benefit from variety
	// (none currently do).
	Temperature float64

	// JSONMode asks the provider to constrain output to a JSON object,
	// when the backend supports it. The tolerant parser is still run
	// regardless, since not every backend honors this reliably.
	JSONMode bool
}

// Client is the interface every pipeline stage calls through. Generate
// returns a channel of Chunk values; the channel is closed when the stream
// completes, and a terminal ErrorChunk is delivered rather than returned
// directly so callers can keep whatever partial text they've collected.
type Client interface {
	Generate(ctx context.Context, req Request) (<-chan Chunk, error)
	Close() error
}

// ChunkType identifies the kind of streaming chunk.
type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeUsage ChunkType = "usage"
	ChunkTypeError ChunkType = "error"
)

// Chunk is the interface for all streaming chunk types Generate emits.
type Chunk interface {
	chunkType() ChunkType
}

// TextChunk is a delta of the LLM's text response.
type TextChunk struct{ Content string }

// UsageChunk reports token consumption for a completed call.
type UsageChunk struct{ InputTokens, OutputTokens, TotalTokens int }

// ErrorChunk signals an error from the LLM provider.
type ErrorChunk struct {
	Message   string
	Code      string
	Retryable bool
}

func (c *TextChunk) chunkType() ChunkType  { return ChunkTypeText }
func (c *UsageChunk) chunkType() ChunkType { return ChunkTypeUsage }
func (c *ErrorChunk) chunkType() ChunkType { return ChunkTypeError }
