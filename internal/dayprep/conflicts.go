package dayprep

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
)

type conflictsResponse struct {
	Conflicts []model.Conflict `json:"conflicts"`
}

// crossConflicts scans every brief for status/priority/decision/timeline/
// resource contradictions against the others (spec.md §4.9).
func (a *Aggregator) crossConflicts(ctx context.Context, briefs []MeetingBrief) ([]model.Conflict, error) {
	if a.llm == nil || len(briefs) < 2 {
		return nil, nil
	}

	prompt := fmt.Sprintf(`Scan these same-day meeting briefs for contradictions between them — conflicting status, priority, decisions, timelines, or resource commitments. Respond with JSON {"conflicts": [{"kind": "status|priority|decision|timeline|resource", "meeting_ids": [string], "description": string}]}. Only report genuine contradictions, not mere topic overlap.

%s`, summarizeBriefs(briefs))

	resp, err := llmclient.Call(ctx, a.llm, llmclient.Request{
		Provider: a.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}
	var parsed conflictsResponse
	if _, err := llmclient.ParseJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}
	return parsed.Conflicts, nil
}

func summarizeBriefs(briefs []MeetingBrief) string {
	var sb strings.Builder
	for _, mb := range briefs {
		fmt.Fprintf(&sb, "[%s] %s (%s): purpose=%q summary=%q recommendations=%s\n",
			mb.Meeting.ID, mb.Meeting.Title, mb.Meeting.Start.Format("15:04"),
			mb.Brief.Purpose, mb.Brief.Summary, strings.Join(mb.Brief.Recommendations, "; "))
	}
	return sb.String()
}
