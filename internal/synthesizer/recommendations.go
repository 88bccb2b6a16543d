package synthesizer

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
)

type listResponse struct {
	Items []string `json:"items"`
}

// recommendations produces 3-5 strategic items, 25-70 words each, each
// referencing specific context (spec.md §4.8 stage 6).
func (s *Synthesizer) recommendations(ctx context.Context, in Input, narrative string) ([]string, error) {
	if s.llm == nil {
		return nil, nil
	}

	prompt := fmt.Sprintf(`Based on this context for %s's meeting %q, produce 3-5 strategic recommendations, each 25-70 words and referencing specific context from below (not generic advice). Respond with JSON {"items": [string]}.

Narrative: %s

Purpose: %s

Email context: %s

Document context: %s`,
		userLabel(in.User), in.Meeting.Title, narrative, in.Purpose.Purpose, in.EmailResult.Narrative, in.DocumentResult.Narrative)

	resp, err := llmclient.Call(ctx, s.llm, llmclient.Request{
		Provider: s.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}
	var parsed listResponse
	if _, err := llmclient.ParseJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}
	return parsed.Items, nil
}
