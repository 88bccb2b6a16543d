package dayprep

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
)

type dependenciesResponse struct {
	Dependencies []model.Dependency `json:"dependencies"`
}

// dependencies suggests sequencing constraints between meetings — e.g. a
// decision meeting that should precede one that needs its outcome
// (spec.md §4.9).
func (a *Aggregator) dependencies(ctx context.Context, briefs []MeetingBrief) ([]model.Dependency, error) {
	if a.llm == nil || len(briefs) < 2 {
		return nil, nil
	}

	prompt := fmt.Sprintf(`Suggest sequencing dependencies between these same-day meetings, where attending one before another matters. Respond with JSON {"dependencies": [{"from_meeting_id": string, "to_meeting_id": string, "reason": "decision|information|approval|preparation", "explanation": string}]}. from_meeting_id must come before to_meeting_id in the day. Only report genuine dependencies.

%s`, summarizeBriefs(briefs))

	resp, err := llmclient.Call(ctx, a.llm, llmclient.Request{
		Provider: a.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}
	var parsed dependenciesResponse
	if _, err := llmclient.ParseJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}
	return parsed.Dependencies, nil
}
