package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
)

// broaderNarrative weaves email/doc/relationship summaries into a 10-15
// sentence story of how this meeting came to be (spec.md §4.8 stage 3).
func (s *Synthesizer) broaderNarrative(ctx context.Context, in Input, relationship string) (string, error) {
	if s.llm == nil {
		return "", nil
	}

	prompt := fmt.Sprintf(`Write a 10-15 sentence narrative for %s explaining how the meeting %q came to be — the chain of events, decisions, and context that led here. Weave together the summaries below into one story; do not just list them.

Relationship context: %s

Email history: %s

Document history: %s

Meeting purpose: %s`,
		userLabel(in.User), in.Meeting.Title, relationship, in.EmailResult.Narrative, in.DocumentResult.Narrative, in.Purpose.Purpose)

	resp, err := llmclient.Call(ctx, s.llm, llmclient.Request{
		Provider: s.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}
