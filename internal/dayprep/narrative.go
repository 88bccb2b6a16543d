package dayprep

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// narrativeMarkers delimit the five blocks of the spoken brief. Extraction
// is by marker substring (spec.md §4.9): a missing marker degrades that
// block to an empty string rather than failing the whole narrative.
var narrativeMarkers = []struct {
	marker string
	field  func(*model.DayNarrative) *string
}{
	{"ORIENTATION:", func(n *model.DayNarrative) *string { return &n.Orientation }},
	{"MORNING:", func(n *model.DayNarrative) *string { return &n.Morning }},
	{"MIDDAY:", func(n *model.DayNarrative) *string { return &n.Midday }},
	{"AFTERNOON:", func(n *model.DayNarrative) *string { return &n.Afternoon }},
	{"WIN_CONDITION:", func(n *model.DayNarrative) *string { return &n.WinCondition }},
}

// narrative builds the final 750-1000 word spoken brief. The prompt itself
// is first assembled by an LLM call from an orientation template
// (placeholders for date, user name, meeting context, attendee-name
// speech-transcription hints), then that assembled prompt drives the
// narrative generation call (spec.md §4.9).
func (a *Aggregator) narrative(ctx context.Context, date string, user *model.User, briefs []MeetingBrief, dp *model.DayPrep) (model.DayNarrative, error) {
	if a.llm == nil || len(briefs) == 0 {
		return model.DayNarrative{}, nil
	}

	prompt, err := a.buildOrientationPrompt(ctx, date, user, briefs, dp)
	if err != nil {
		return model.DayNarrative{}, err
	}

	resp, err := llmclient.Call(ctx, a.llm, llmclient.Request{
		Provider: a.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
	})
	if err != nil {
		return model.DayNarrative{}, err
	}

	return parseNarrativeMarkers(resp.Text), nil
}

func (a *Aggregator) buildOrientationPrompt(ctx context.Context, date string, user *model.User, briefs []MeetingBrief, dp *model.DayPrep) (string, error) {
	attendeeHints := attendeeSpeechHints(briefs)

	templatePrompt := fmt.Sprintf(`Generate a prompt for a 750-1000 word spoken day-brief for %s on %s. The brief must have exactly five sections, each starting on its own line with one of these literal markers: ORIENTATION:, MORNING:, MIDDAY:, AFTERNOON:, WIN_CONDITION:. ORIENTATION sets the scene for the day; MORNING/MIDDAY/AFTERNOON walk through that period's meetings using the context below; WIN_CONDITION states what a successful day looks like. Include these attendee name pronunciation hints for text-to-speech: %s. Meeting context:

%s

Cross-meeting themes: %d found. Dependencies: %d found. Conflicts: %d found.

Output only the prompt text to send to the narrator model, nothing else.`,
		userLabel(user), date, attendeeHints, summarizeBriefs(briefs), len(dp.Themes), len(dp.Dependencies), len(dp.CrossConflicts))

	resp, err := llmclient.Call(ctx, a.llm, llmclient.Request{
		Provider: a.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: templatePrompt}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func attendeeSpeechHints(briefs []MeetingBrief) string {
	seen := map[string]bool{}
	var names []string
	for _, mb := range briefs {
		for _, a := range mb.Brief.Attendees {
			if a.Name != "" && !seen[a.Name] {
				seen[a.Name] = true
				names = append(names, a.Name)
			}
		}
	}
	return strings.Join(names, ", ")
}

func userLabel(u *model.User) string {
	if u == nil {
		return "the user"
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// parseNarrativeMarkers splits text on each marker in narrativeMarkers,
// in order. A marker absent from text leaves its block empty.
func parseNarrativeMarkers(text string) model.DayNarrative {
	var n model.DayNarrative
	for i, m := range narrativeMarkers {
		start := strings.Index(text, m.marker)
		if start < 0 {
			continue
		}
		start += len(m.marker)
		end := len(text)
		for _, next := range narrativeMarkers[i+1:] {
			if idx := strings.Index(text[start:], next.marker); idx >= 0 && start+idx < end {
				end = start + idx
			}
		}
		*m.field(&n) = strings.TrimSpace(text[start:end])
	}
	return n
}
