package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
)

// relationshipAnalysis produces 8-12 sentences reasoning over per-attendee
// interaction counts and sampled emails/docs (spec.md §4.8 stage 1).
func (s *Synthesizer) relationshipAnalysis(ctx context.Context, in Input) (string, error) {
	if s.llm == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, a := range in.Attendees {
		fmt.Fprintf(&sb, "- %s (%s)%s: %s\n", a.Name, a.Email, companySuffix(a.Company), strings.Join(a.Facts, "; "))
	}

	prompt := fmt.Sprintf(`Write an 8-12 sentence relationship analysis for %s ahead of their meeting %q. Address %s directly in second person. Reason over each attendee's known history and the email/document context below; do not invent facts.

Attendees:
%s

Email context: %s

Document context: %s`,
		userLabel(in.User), in.Meeting.Title, userLabel(in.User), sb.String(), in.EmailResult.Narrative, in.DocumentResult.Narrative)

	resp, err := llmclient.Call(ctx, s.llm, llmclient.Request{
		Provider: s.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func companySuffix(company string) string {
	if company == "" {
		return ""
	}
	return " at " + company
}
