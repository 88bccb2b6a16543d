// Package purpose is PurposeDetector (spec.md §4.5): three LLM stages —
// calendar-only inference and attendee-overlap email inference run
// concurrently, then an arbiter call aggregates both into a final
// purpose/agenda with a source label.
package purpose

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/harvester"
	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// maxContextEmails caps how many overlap-ranked emails are fed to the
// email_find_context LLM call (spec.md §4.5).
const maxContextEmails = 5

// Detector runs the three-stage purpose/agenda detection pipeline.
type Detector struct {
	llm      llmclient.Client
	provider *config.LLMProviderConfig
}

// New builds a Detector calling llm via provider.
func New(llm llmclient.Client, provider *config.LLMProviderConfig) *Detector {
	return &Detector{llm: llm, provider: provider}
}

type hypothesis struct {
	Purpose    string   `json:"purpose"`
	Agenda     []string `json:"agenda"`
	Confidence float64  `json:"confidence"`
}

// Detect runs calendar_infer and email_find_context concurrently, then
// combines both hypotheses via final_aggregate.
func (d *Detector) Detect(ctx context.Context, meeting *model.Meeting, emails []model.EmailArtifact) (*model.PurposeResult, error) {
	var wg sync.WaitGroup
	var calHyp, emailHyp hypothesis
	var emailRefs []string

	wg.Add(2)
	go func() {
		defer wg.Done()
		calHyp = d.calendarInfer(ctx, meeting)
	}()
	go func() {
		defer wg.Done()
		emailHyp, emailRefs = d.emailFindContext(ctx, meeting, emails)
	}()
	wg.Wait()

	result := d.finalAggregate(ctx, calHyp, emailHyp)
	result.ContextEmailRefs = emailRefs
	return result, nil
}

func (d *Detector) calendarInfer(ctx context.Context, meeting *model.Meeting) hypothesis {
	if d.llm == nil {
		return hypothesis{}
	}
	var names []string
	for _, a := range model.HumanAttendees(meeting.Attendees) {
		if a.DisplayName != "" {
			names = append(names, a.DisplayName)
		} else {
			names = append(names, a.Email)
		}
	}
	prompt := fmt.Sprintf(`From the calendar metadata alone, infer this meeting's purpose and a short agenda. Never invent agenda items not implied by the text. Respond with JSON: {"purpose": string, "agenda": [string], "confidence": 0-1}.

Title: %s
Description: %s
Attendees: %s`, meeting.Title, meeting.Description, strings.Join(names, ", "))

	resp, err := llmclient.Call(ctx, d.llm, llmclient.Request{
		Provider: d.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return hypothesis{}
	}
	var h hypothesis
	if _, err := llmclient.ParseJSON(resp.Text, &h); err != nil {
		return hypothesis{}
	}
	return h
}

func (d *Detector) emailFindContext(ctx context.Context, meeting *model.Meeting, emails []model.EmailArtifact) (hypothesis, []string) {
	ranked := rankByOverlapThenRecency(meeting, emails)
	if len(ranked) > maxContextEmails {
		ranked = ranked[:maxContextEmails]
	}
	if len(ranked) == 0 || d.llm == nil {
		return hypothesis{}, nil
	}

	var sb strings.Builder
	var refs []string
	for _, e := range ranked {
		fmt.Fprintf(&sb, "Email %s — Subject: %s\n%s\n\n", e.ID, e.Subject, e.Snippet)
		refs = append(refs, e.ID)
	}

	prompt := fmt.Sprintf(`Extract only explicitly-stated purpose and agenda items from these emails related to an upcoming meeting titled %q. Do not infer beyond what is written. Respond with JSON: {"purpose": string, "agenda": [string], "confidence": 0-1}.

%s`, meeting.Title, sb.String())

	resp, err := llmclient.Call(ctx, d.llm, llmclient.Request{
		Provider: d.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return hypothesis{}, refs
	}
	var h hypothesis
	if _, err := llmclient.ParseJSON(resp.Text, &h); err != nil {
		return hypothesis{}, refs
	}
	return h, refs
}

func rankByOverlapThenRecency(meeting *model.Meeting, emails []model.EmailArtifact) []model.EmailArtifact {
	attendees := meeting.AttendeeEmails()
	type scored struct {
		email   model.EmailArtifact
		overlap float64
	}
	var scoredEmails []scored
	for _, e := range emails {
		if !harvester.PassesOverlap(&e, meeting) {
			continue
		}
		scoredEmails = append(scoredEmails, scored{email: e, overlap: harvester.ParticipantOverlap(e.Participants(), attendees)})
	}
	sort.Slice(scoredEmails, func(i, j int) bool {
		if scoredEmails[i].overlap != scoredEmails[j].overlap {
			return scoredEmails[i].overlap > scoredEmails[j].overlap
		}
		return scoredEmails[i].email.Date.After(scoredEmails[j].email.Date)
	})
	out := make([]model.EmailArtifact, len(scoredEmails))
	for i, s := range scoredEmails {
		out[i] = s.email
	}
	return out
}

type arbiterResponse struct {
	Purpose    string   `json:"purpose"`
	Agenda     []string `json:"agenda"`
	Confidence float64  `json:"confidence"`
	Source     string   `json:"source"`
}

// finalAggregate combines both hypotheses, preferring the more specific
// and higher-confidence source. If both agree (same non-empty purpose),
// confidence is upgraded one step; if both are empty, the result is
// uncertain.
func (d *Detector) finalAggregate(ctx context.Context, cal, email hypothesis) *model.PurposeResult {
	if cal.Purpose == "" && email.Purpose == "" {
		return &model.PurposeResult{Source: model.PurposeSourceUncertain}
	}

	if d.llm != nil {
		if result := d.arbiterCall(ctx, cal, email); result != nil {
			return result
		}
	}

	// Deterministic fallback when no LLM is configured or the arbiter call
	// failed: prefer the higher-confidence, non-empty hypothesis.
	switch {
	case cal.Purpose != "" && email.Purpose != "" && strings.EqualFold(cal.Purpose, email.Purpose):
		return &model.PurposeResult{Purpose: cal.Purpose, Agenda: mergeAgenda(cal.Agenda, email.Agenda), Confidence: upgradeConfidence(max(cal.Confidence, email.Confidence)), Source: model.PurposeSourceCombined}
	case cal.Confidence >= email.Confidence && cal.Purpose != "":
		return &model.PurposeResult{Purpose: cal.Purpose, Agenda: cal.Agenda, Confidence: cal.Confidence, Source: model.PurposeSourceCalendar}
	case email.Purpose != "":
		return &model.PurposeResult{Purpose: email.Purpose, Agenda: email.Agenda, Confidence: email.Confidence, Source: model.PurposeSourceEmail}
	default:
		return &model.PurposeResult{Purpose: cal.Purpose, Agenda: cal.Agenda, Confidence: cal.Confidence, Source: model.PurposeSourceCalendar}
	}
}

func (d *Detector) arbiterCall(ctx context.Context, cal, email hypothesis) *model.PurposeResult {
	prompt := fmt.Sprintf(`Two independent hypotheses about a meeting's purpose were produced. Pick the more specific and higher-confidence one, or combine them if they agree. Respond with JSON: {"purpose": string, "agenda": [string], "confidence": 0-1, "source": one of calendar|email|combined|llm|uncertain}.

Calendar hypothesis: purpose=%q agenda=%v confidence=%.2f
Email hypothesis: purpose=%q agenda=%v confidence=%.2f`,
		cal.Purpose, cal.Agenda, cal.Confidence, email.Purpose, email.Agenda, email.Confidence)

	resp, err := llmclient.Call(ctx, d.llm, llmclient.Request{
		Provider: d.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil
	}
	var a arbiterResponse
	if _, err := llmclient.ParseJSON(resp.Text, &a); err != nil {
		return nil
	}
	source := model.PurposeSource(a.Source)
	switch source {
	case model.PurposeSourceCalendar, model.PurposeSourceEmail, model.PurposeSourceCombined, model.PurposeSourceLLM, model.PurposeSourceUncertain:
	default:
		source = model.PurposeSourceLLM
	}
	return &model.PurposeResult{Purpose: a.Purpose, Agenda: a.Agenda, Confidence: a.Confidence, Source: source}
}

func mergeAgenda(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, items := range [][]string{a, b} {
		for _, it := range items {
			if !seen[it] {
				seen[it] = true
				out = append(out, it)
			}
		}
	}
	return out
}

// upgradeConfidence bumps confidence one "step" (0.2) when both hypotheses
// agree, capped at 1.0.
func upgradeConfidence(c float64) float64 {
	c += 0.2
	if c > 1.0 {
		return 1.0
	}
	return c
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
