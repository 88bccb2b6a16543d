// Package dayprep is DayPrepAggregator (spec.md §4.9): cross-meeting
// theme/conflict/dependency detection over a user's same-day Briefs,
// feeding a final spoken-brief narrative stage.
package dayprep

import (
	"context"
	"sort"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// Aggregator builds a DayPrep from an ordered list of same-day Briefs.
type Aggregator struct {
	llm      llmclient.Client
	provider *config.LLMProviderConfig
}

// New builds an Aggregator.
func New(llm llmclient.Client, provider *config.LLMProviderConfig) *Aggregator {
	return &Aggregator{llm: llm, provider: provider}
}

// MeetingBrief pairs a Brief with its source Meeting, since overlaps,
// conflicts, and the narrative all need the meeting's title/time alongside
// the brief content.
type MeetingBrief struct {
	Meeting *model.Meeting
	Brief   *model.Brief
}

// Build computes every DayPrep field for date (YYYY-MM-DD) and user.
// A failure in any LLM-driven stage degrades that stage to empty output
// plus a recorded warning; Build itself never returns an error.
func (a *Aggregator) Build(ctx context.Context, date string, user *model.User, briefs []MeetingBrief) *model.DayPrep {
	sort.Slice(briefs, func(i, j int) bool { return briefs[i].Meeting.Start.Before(briefs[j].Meeting.Start) })

	dp := &model.DayPrep{
		Date:           date,
		PersonOverlaps: personOverlaps(briefs),
		TopicOverlaps:  topicOverlaps(briefs),
	}

	warn := func(stage string, err error) {
		if err != nil {
			dp.Warnings = append(dp.Warnings, stage+": "+err.Error())
		}
	}

	conflicts, err := a.crossConflicts(ctx, briefs)
	warn("cross_conflicts", err)
	dp.CrossConflicts = conflicts

	themes, err := a.themes(ctx, briefs)
	warn("themes", err)
	dp.Themes = themes

	deps, err := a.dependencies(ctx, briefs)
	warn("dependencies", err)
	dp.Dependencies = deps

	narrative, err := a.narrative(ctx, date, user, briefs, dp)
	warn("narrative", err)
	dp.Narrative = narrative

	return dp
}

func personOverlaps(briefs []MeetingBrief) map[string]int {
	counts := map[string]int{}
	for _, mb := range briefs {
		seen := map[string]bool{}
		for _, a := range mb.Brief.Attendees {
			if !seen[a.Email] {
				counts[a.Email]++
				seen[a.Email] = true
			}
		}
	}
	return counts
}

func topicOverlaps(briefs []MeetingBrief) map[string]int {
	counts := map[string]int{}
	for _, mb := range briefs {
		for _, topic := range extractTopics(mb.Brief) {
			counts[topic]++
		}
	}
	return counts
}

// extractTopics approximates a brief's topic set from its detected
// purpose — the structured per-email topic list (§4.6) is consumed
// upstream by BriefSynthesizer and not retained on the Brief itself.
func extractTopics(b *model.Brief) []string {
	if b.Purpose == "" {
		return nil
	}
	return []string{b.Purpose}
}
