// Package synthesizer is BriefSynthesizer (spec.md §4.8): eight strictly
// sequential stages, all but the trend computation LLM-driven, that consume §4.6's relevance output and
// §4.7's attendee research into a finished Brief. Every stage degrades
// gracefully on failure — a single bad LLM call never aborts the brief.
package synthesizer

import (
	"context"
	"time"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/relevance"
)

// Synthesizer runs the BriefSynthesizer stage sequence.
type Synthesizer struct {
	llm      llmclient.Client
	provider *config.LLMProviderConfig
	scoring  *config.ScoringConfig
}

// New builds a Synthesizer.
func New(llm llmclient.Client, provider *config.LLMProviderConfig, scoring *config.ScoringConfig) *Synthesizer {
	return &Synthesizer{llm: llm, provider: provider, scoring: scoring}
}

// Input bundles everything the sequential stages consume. It is the
// PrepCoordinator's join point between §4.6 (RelevanceFilterPipeline) and
// §4.7 (AttendeeResearcher), both of which must have already completed.
type Input struct {
	Meeting         *model.Meeting
	User            *model.User
	Classification  *model.Classification
	Purpose         model.PurposeResult
	EmailResult     relevance.EmailResult
	DocumentResult  relevance.DocumentResult
	Attendees       []model.AttendeeProfile
	CalendarHistory []model.CalendarArtifact

	// Emails/Documents are the artifacts that survived §4.6's relevance
	// filter — the same sets passed to AnalyzeEmails/AnalyzeDocuments.
	// The timeline stage merges them with CalendarHistory into a typed
	// event stream; it does not re-run the relevance filter.
	Emails    []model.EmailArtifact
	Documents []model.DocumentArtifact
}

// Synthesize runs all eight stages in order and assembles the Brief. It
// never returns an error: every stage's failure is recorded as a warning
// on ExtractionData.Warnings and the stage's output degrades to empty
// (the timeline stage instead keeps its unranked candidate events).
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) *model.Brief {
	brief := &model.Brief{
		MeetingID:      in.Meeting.ID,
		Classification: in.Classification,
		Purpose:        in.Purpose.Purpose,
		Agenda:         in.Purpose.Agenda,
		Attendees:      in.Attendees,
		EmailAnalysis:  in.EmailResult.Narrative,
		DocumentAnalysis: in.DocumentResult.Narrative,
		GeneratedAt:    time.Now(),
		PrepDepth:      prepDepthOf(in.Classification),
	}
	if in.User != nil {
		brief.UserID = in.User.ID
	}

	brief.ExtractionData = model.ExtractionData{
		EmailReasoning:    in.EmailResult.Reasoning,
		DocumentReasoning: in.DocumentResult.Reasoning,
		DocumentStaleness: in.DocumentResult.Staleness,
		FailedBatches:     append(append([]string{}, in.EmailResult.FailedBatches...), in.DocumentResult.FailedBatches...),
	}

	warn := func(stage string, err error) {
		if err == nil {
			return
		}
		brief.ExtractionData.Warnings = append(brief.ExtractionData.Warnings, stage+": "+err.Error())
	}

	relationship, err := s.relationshipAnalysis(ctx, in)
	warn("relationship_analysis", err)
	brief.RelationshipAnalysis = relationship

	contribution, err := s.contributionAnalysis(ctx, in)
	warn("contribution_analysis", err)
	brief.ContributionAnalysis = contribution

	narrative, err := s.broaderNarrative(ctx, in, relationship)
	warn("broader_narrative", err)
	brief.BroaderNarrative = narrative

	timeline, err := s.buildTimeline(ctx, in)
	warn("timeline", err)
	brief.Timeline = timeline

	brief.Trend = computeTrend(timeline, s.scoring)

	recommendations, err := s.recommendations(ctx, in, narrative)
	warn("recommendations", err)
	brief.Recommendations = recommendations

	actionItems, err := s.actionItems(ctx, in, narrative)
	warn("action_items", err)
	brief.ActionItems = actionItems

	summary, err := s.executiveSummary(ctx, in, relationship, contribution, narrative, recommendations)
	warn("executive_summary", err)
	brief.Summary = summary

	brief.Stats = model.Stats{
		EmailsAnalyzed:      len(in.EmailResult.Extraction.Topics),
		DocumentsAnalyzed:   len(in.DocumentResult.Insights),
		AttendeesResearched: len(in.Attendees),
		CalendarEvents:      len(in.CalendarHistory),
	}

	return brief
}

func prepDepthOf(c *model.Classification) model.PrepDepth {
	if c == nil {
		return model.PrepDepthFull
	}
	return c.PrepDepth
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
