package synthesizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
)

// purposeData is the structured meta-analysis object the first executive
// summary call produces (spec.md §4.8 stage 8).
type purposeData struct {
	CorePurpose     string   `json:"corePurpose"`
	WhyNow          string   `json:"whyNow"`
	KeyQuestions    []string `json:"keyQuestions"`
	Narrative       string   `json:"narrative"`
	Stakes          string   `json:"stakes"`
	KeyPlayers      []string `json:"keyPlayers"`
	CriticalContext string   `json:"criticalContext"`
}

// executiveSummary runs the two-step meta-analysis: a structured
// purpose_data object, then a 4-5 sentence second-person paragraph built
// from it plus every prior stage's output.
func (s *Synthesizer) executiveSummary(ctx context.Context, in Input, relationship, contribution, narrative string, recommendations []string) (string, error) {
	if s.llm == nil {
		return "", nil
	}

	pd, err := s.derivePurposeData(ctx, in, relationship, narrative)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`Write a 4-5 sentence executive summary for %s's meeting %q, in second person, using this structured analysis plus the supporting context. Be direct and specific, not generic.

Core purpose: %s
Why now: %s
Key questions: %s
Stakes: %s
Key players: %s
Critical context: %s

Relationship analysis: %s
Contribution analysis: %s
Recommendations: %s`,
		userLabel(in.User), in.Meeting.Title,
		pd.CorePurpose, pd.WhyNow, strings.Join(pd.KeyQuestions, "; "), pd.Stakes, strings.Join(pd.KeyPlayers, ", "), pd.CriticalContext,
		relationship, contribution, strings.Join(recommendations, "; "))

	resp, err := llmclient.Call(ctx, s.llm, llmclient.Request{
		Provider: s.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func (s *Synthesizer) derivePurposeData(ctx context.Context, in Input, relationship, narrative string) (*purposeData, error) {
	prompt := fmt.Sprintf(`Produce a structured meta-analysis of meeting %q as JSON matching exactly: {"corePurpose": string, "whyNow": string, "keyQuestions": [string], "narrative": string, "stakes": string, "keyPlayers": [string], "criticalContext": string}.

Purpose detected: %s
Relationship analysis: %s
Broader narrative: %s`, in.Meeting.Title, in.Purpose.Purpose, relationship, narrative)

	resp, err := llmclient.Call(ctx, s.llm, llmclient.Request{
		Provider: s.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}
	var parsed purposeData
	if _, err := llmclient.ParseJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}
