package synthesizer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// timelineLookback bounds candidate events to the last 180 days (spec.md
// §4.8 stage 4).
const timelineLookback = 180 * 24 * time.Hour

// maxTimelineCandidates is the ceiling on events sent to the LLM arbiter;
// maxTimelineFinal is the hard cap on the merged, ranked result.
const maxTimelineCandidates = 100
const maxTimelineFinal = 100

type timelineRankResponse struct {
	ImportantIDs []string `json:"important_ids"`
}

// buildTimeline merges emails, documents, and past meetings into a typed
// event stream, asks an LLM arbiter to select the most important IDs from
// up to 100 candidates, caps the result at 100, sorts descending by
// timestamp, and pins the upcoming meeting as a reference event.
func (s *Synthesizer) buildTimeline(ctx context.Context, in Input) ([]model.TimelineEvent, error) {
	candidates := mergeTimelineCandidates(in)
	candidates = filterToLookback(candidates, in.Meeting.Start)

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Date.After(candidates[j].Date) })
	if len(candidates) > maxTimelineCandidates {
		candidates = candidates[:maxTimelineCandidates]
	}

	selected := candidates
	var err error
	if s.llm != nil && len(candidates) > 0 {
		selected, err = s.rankTimeline(ctx, in, candidates)
		if err != nil {
			selected = candidates // degrade to the full candidate set, unranked
		}
	}

	if len(selected) > maxTimelineFinal {
		selected = selected[:maxTimelineFinal]
	}

	reference := model.TimelineEvent{
		ID:            in.Meeting.ID,
		Type:          model.TimelineEventMeeting,
		Date:          in.Meeting.Start,
		NameOrSubject: in.Meeting.Title,
		Participants:  in.Meeting.AttendeeEmails(),
		IsReference:   true,
	}
	selected = append(selected, reference)

	sort.Slice(selected, func(i, j int) bool { return selected[i].Date.After(selected[j].Date) })
	return selected, err
}

func mergeTimelineCandidates(in Input) []model.TimelineEvent {
	var out []model.TimelineEvent
	for _, e := range in.Emails {
		out = append(out, model.TimelineEvent{
			ID:            e.ID,
			Type:          model.TimelineEventEmail,
			Date:          e.Date,
			NameOrSubject: e.Subject,
			Participants:  e.Participants(),
			Snippet:       e.Snippet,
		})
	}
	for _, d := range in.Documents {
		out = append(out, model.TimelineEvent{
			ID:            d.ID,
			Type:          model.TimelineEventDocument,
			Date:          d.ModifiedTime,
			NameOrSubject: d.Name,
			Participants:  []string{d.OwnerEmail},
		})
	}
	for _, c := range in.CalendarHistory {
		var participants []string
		for _, a := range c.Attendees {
			participants = append(participants, a.Email)
		}
		out = append(out, model.TimelineEvent{
			ID:            c.ID,
			Type:          model.TimelineEventMeeting,
			Date:          c.Start,
			NameOrSubject: c.Title,
			Participants:  participants,
		})
	}
	return out
}

func filterToLookback(events []model.TimelineEvent, reference time.Time) []model.TimelineEvent {
	cutoff := reference.Add(-timelineLookback)
	var out []model.TimelineEvent
	for _, e := range events {
		if e.Date.After(cutoff) && e.Date.Before(reference) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Synthesizer) rankTimeline(ctx context.Context, in Input, candidates []model.TimelineEvent) ([]model.TimelineEvent, error) {
	var sb strings.Builder
	for _, e := range candidates {
		fmt.Fprintf(&sb, "id=%s type=%s date=%s subject=%q\n", e.ID, e.Type, e.Date.Format("2006-01-02"), e.NameOrSubject)
	}

	prompt := fmt.Sprintf(`From these %d timeline candidates for meeting %q, select the IDs of the most important events — the ones that best explain how this meeting came to be. Respond with JSON {"important_ids": [string]}.

%s`, len(candidates), in.Meeting.Title, sb.String())

	resp, err := llmclient.Call(ctx, s.llm, llmclient.Request{
		Provider: s.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil, err
	}
	var parsed timelineRankResponse
	if _, err := llmclient.ParseJSON(resp.Text, &parsed); err != nil {
		return nil, err
	}

	wanted := map[string]bool{}
	for _, id := range parsed.ImportantIDs {
		wanted[id] = true
	}
	var out []model.TimelineEvent
	for _, e := range candidates {
		if wanted[e.ID] {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return candidates, nil
	}
	return out, nil
}
