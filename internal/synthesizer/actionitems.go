package synthesizer

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
)

// actionItems produces 3-7 preparation steps, 15-50 words each (spec.md
// §4.8 stage 7).
func (s *Synthesizer) actionItems(ctx context.Context, in Input, narrative string) ([]string, error) {
	if s.llm == nil {
		return nil, nil
	}

	prompt := fmt.Sprintf(`Based on this context for %s's meeting %q, produce 3-7 concrete preparation steps %s should take before the meeting, each 15-50 words. Respond with JSON {"items": [string]}.

Narrative: %s

Purpose: %s`, userLabel(in.User), in.Meeting.Title, userLabel(in.User), narrative, in.Purpose.Purpose)

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
