package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
)

// contributionGridResponse is the structured who-contributes-what grid
// pass one of stage 2 produces, before narrative conversion.
type contributionGridResponse struct {
	Contributions map[string][]string `json:"contributions"` // attendee email -> contribution bullets
}

// contributionAnalysis builds a who-contributes-what grid, then converts it
// to narrative prose (spec.md §4.8 stage 2).
func (s *Synthesizer) contributionAnalysis(ctx context.Context, in Input) (string, error) {
	if s.llm == nil {
		return "", nil
	}

	grid, err := s.contributionGrid(ctx, in)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for email, bullets := range grid.Contributions {
		fmt.Fprintf(&sb, "%s: %s\n", email, strings.Join(bullets, "; "))
	}

	prompt := fmt.Sprintf(`Convert this who-contributes-what grid into 4-6 sentences of flowing narrative prose, written for %s in second person. Do not just restate the grid as a list.

%s`, userLabel(in.User), sb.String())

	resp, err := llmclient.Call(ctx, s.llm, llmclient.Request{
		Provider: s.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func (s *Synthesizer) contributionGrid(ctx context.Context, in Input) (*contributionGridResponse, error) {
	var sb strings.Builder
	for _, a := range in.Attendees {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", a.Name, a.Email, strings.Join(a.Facts, "; "))
	}

	prompt := fmt.Sprintf(`Given these attendees and context for meeting %q, produce a JSON object {"contributions": {"<email>": ["contribution bullet", ...]}} describing what each person is likely to contribute, grounded only in the facts given.

%s

Email context: %s
Document context: %s`, in.Meeting.Title, sb.String(), in.EmailResult.Narrative, in.DocumentResult.Narrative)

	resp, err := llmclient.Call(ctx, s.llm, llmclient.Request{
		Provider: s.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}
	var parsed contributionGridResponse
	if _, err := llmclient.ParseJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
