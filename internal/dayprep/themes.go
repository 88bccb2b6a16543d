package dayprep

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
)

type themesResponse struct {
	Themes []model.Theme `json:"themes"`
}

// themes identifies threads connecting two or more meetings, each tagged
// with a significance note (spec.md §4.9).
func (a *Aggregator) themes(ctx context.Context, briefs []MeetingBrief) ([]model.Theme, error) {
	if a.llm == nil || len(briefs) < 2 {
		return nil, nil
	}

	prompt := fmt.Sprintf(`Identify themes connecting two or more of these same-day meetings — shared projects, people, or decisions that link them. Respond with JSON {"themes": [{"label": string, "meeting_ids": [string], "significance": string}]}. A theme must connect at least 2 meeting_ids; do not report single-meeting themes.

%s`, summarizeBriefs(briefs))

	resp, err := llmclient.Call(ctx, a.llm, llmclient.Request{
		Provider: a.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}
	var parsed themesResponse
	if _, err := llmclient.ParseJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}

	var out []model.Theme
	for _, t := range parsed.Themes {
		if len(t.MeetingIDs) >= 2 {
			out = append(out, t)
		}
	}
	return out, nil
}
