// Package coordinator is PrepCoordinator (spec.md §4.10): it drives one
// meeting through TokenGuard, MultiAccountHarvester, EventClassifier,
// PurposeDetector, RelevanceFilterPipeline, AttendeeResearcher and
// BriefSynthesizer, streaming progress on a bounded channel the caller
// drains. Grounded in the teacher's events.ConnectionManager — a
// long-lived producer writing into a bounded channel, cancellation
// propagated through a derived context — adapted from a fan-out WebSocket
// broadcaster to a single-consumer ndjson stream.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/prepd/internal/classifier"
	"github.com/codeready-toolchain/prepd/internal/harvester"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/purpose"
	"github.com/codeready-toolchain/prepd/internal/relevance"
	"github.com/codeready-toolchain/prepd/internal/researcher"
	"github.com/codeready-toolchain/prepd/internal/synthesizer"
	"github.com/codeready-toolchain/prepd/internal/tokenguard"
)

// keepaliveInterval is the max gap between stream events before the
// coordinator inserts a synthetic keepalive (spec.md §4.10).
const keepaliveInterval = 10 * time.Second

// streamBuffer sizes the output channel so a momentarily slow consumer
// doesn't stall the pipeline goroutine mid-stage.
const streamBuffer = 16

// Coordinator runs one meeting through the full prep pipeline.
type Coordinator struct {
	guard       *tokenguard.Guard
	harvester   *harvester.Harvester
	classifier  *classifier.Classifier
	purpose     *purpose.Detector
	relevance   *relevance.Pipeline
	researcher  *researcher.Researcher
	synthesizer *synthesizer.Synthesizer
}

// New wires a Coordinator from its stage components.
func New(
	guard *tokenguard.Guard,
	h *harvester.Harvester,
	c *classifier.Classifier,
	p *purpose.Detector,
	r *relevance.Pipeline,
	res *researcher.Researcher,
	s *synthesizer.Synthesizer,
) *Coordinator {
	return &Coordinator{
		guard:       guard,
		harvester:   h,
		classifier:  c,
		purpose:     p,
		relevance:   r,
		researcher:  res,
		synthesizer: s,
	}
}

// Run starts the pipeline in its own goroutine and returns a channel the
// caller drains until it closes. Cancelling ctx is best-effort: in-flight
// provider/LLM calls complete, but no further ones are issued, per §4.10's
// cancellation contract.
func (c *Coordinator) Run(ctx context.Context, meeting *model.Meeting, accounts []*model.Account, user *model.User) <-chan model.StreamEvent {
	out := make(chan model.StreamEvent, streamBuffer)
	go c.run(ctx, meeting, accounts, user, out)
	return out
}

func (c *Coordinator) run(ctx context.Context, meeting *model.Meeting, accounts []*model.Account, user *model.User, out chan model.StreamEvent) {
	defer close(out)

	em := newEmitter(out)
	defer em.stop()

	requestID := uuid.New().String()

	if !em.progress(ctx, model.StageHarvesting, "starting", 0) {
		return
	}

	valid, errEvent := c.ensureAccounts(ctx, accounts, requestID)
	if errEvent != nil {
		em.send(ctx, *errEvent)
		return
	}

	if !em.progress(ctx, model.StageHarvesting, "fetching_context", 5) {
		return
	}
	calendarHistory, _, calErr := c.harvester.FetchCalendar(ctx, meeting, valid)

	if !em.progress(ctx, model.StageHarvesting, "fetching_data", 15) {
		return
	}
	emails, _, emailErr := c.harvester.FetchEmails(ctx, meeting, valid)
	docs, _, docErr := c.harvester.FetchFiles(ctx, meeting, valid)
	if calErr != nil && emailErr != nil && docErr != nil {
		em.send(ctx, model.NewErrorEvent(&model.PrepError{
			Status:    model.PrepStatusUnavailable,
			Kind:      "harvest_failed",
			Message:   "every provider call failed across all valid accounts",
			RequestID: requestID,
		}))
		return
	}

	if !em.progress(ctx, model.StageClassifying, "classifying", 20) {
		return
	}
	classification, err := c.classifier.Classify(ctx, meeting, userEmailAddrs(user))
	if err != nil {
		em.send(ctx, model.NewErrorEvent(&model.PrepError{
			Status:    model.PrepStatusBadRequest,
			Kind:      "classification_failed",
			Message:   err.Error(),
			RequestID: requestID,
		}))
		return
	}
	if classification.PrepDepth != model.PrepDepthFull {
		em.send(ctx, model.NewCompleteEvent(minimalBrief(meeting, user, classification)))
		return
	}

	if !em.progress(ctx, model.StagePurpose, "detecting_purpose", 30) {
		return
	}
	purposeResult, _ := c.purpose.Detect(ctx, meeting, emails)

	if !em.progress(ctx, model.StageRelevance, "analyzing_emails", 40) {
		return
	}
	if !em.progress(ctx, model.StageAttendees, "researching_attendees", 40) {
		return
	}

	mc := relevance.MeetingContext{
		Title:       meeting.Title,
		Purpose:     purposeResult.Purpose,
		KeyEntities: purposeResult.Agenda,
		Confidence:  purposeResult.Confidence,
		CompanyName: userCompany(user),
	}

	// §4.6 (relevance) and §4.7 (attendee research) run concurrently; both
	// must finish before §4.8's sequential stages begin (spec.md §4.10).
	var emailResult relevance.EmailResult
	var docResult relevance.DocumentResult
	var attendees []model.AttendeeProfile
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		emailResult = c.relevance.AnalyzeEmails(ctx, mc, emails)
		em.progress(ctx, model.StageRelevance, "analyzing_documents", 50)
		docResult = c.relevance.AnalyzeDocuments(ctx, mc, docs, meeting.Start)
	}()
	go func() {
		defer wg.Done()
		attendees, _ = c.researcher.ResearchAll(ctx, meeting, emails, calendarHistory)
	}()
	wg.Wait()

	if !em.progress(ctx, model.StageSynthesis, "synthesizing_narrative", 65) {
		return
	}
	brief := c.synthesizer.Synthesize(ctx, synthesizer.Input{
		Meeting:         meeting,
		User:            user,
		Classification:  classification,
		Purpose:         *purposeResult,
		EmailResult:     emailResult,
		DocumentResult:  docResult,
		Attendees:       attendees,
		CalendarHistory: calendarHistory,
		Emails:          emails,
		Documents:       docs,
	})
	brief.Stats.EmailsHarvested = len(emails)
	brief.Stats.DocumentsHarvested = len(docs)

	if !em.progress(ctx, model.StageSynthesis, "generating_summary", 95) {
		return
	}
	em.send(ctx, model.NewCompleteEvent(brief))
}

// ensureAccounts validates accounts via TokenGuard and returns the usable
// subset, or a terminal error event if none remain (spec.md §8 scenario
// C: all-revoked accounts end the stream with a single 401 error and no
// provider list calls).
func (c *Coordinator) ensureAccounts(ctx context.Context, accounts []*model.Account, requestID string) ([]*model.Account, *model.StreamEvent) {
	if len(accounts) == 0 {
		ev := model.NewErrorEvent(&model.PrepError{
			Status:    model.PrepStatusUnavailable,
			Kind:      "no_valid_accounts",
			Message:   model.ErrNoValidAccounts.Error(),
			RequestID: requestID,
		})
		return nil, &ev
	}

	result := c.guard.EnsureAllValid(ctx, accounts)
	if len(result.Valid) == 0 {
		status := model.PrepStatusUnavailable
		if result.AllRevoked() {
			status = model.PrepStatusUnauthorized
		}
		ev := model.NewErrorEvent(&model.PrepError{
			Status:    status,
			Kind:      "no_valid_accounts",
			Message:   model.ErrNoValidAccounts.Error(),
			RequestID: requestID,
			Revoked:   result.AllRevoked(),
			Details:   result.Failed,
		})
		return nil, &ev
	}
	return result.Valid, nil
}

func minimalBrief(meeting *model.Meeting, user *model.User, classification *model.Classification) *model.Brief {
	b := &model.Brief{
		MeetingID:      meeting.ID,
		Classification: classification,
		PrepDepth:      classification.PrepDepth,
		GeneratedAt:    time.Now(),
		Summary:        fmt.Sprintf("%s — classified %s, no preparation needed.", meeting.Title, classification.Type),
	}
	if user != nil {
		b.UserID = user.ID
	}
	return b
}

func userEmailAddrs(u *model.User) []string {
	if u == nil {
		return nil
	}
	out := make([]string, 0, 1+len(u.Emails))
	if u.Email != "" {
		out = append(out, u.Email)
	}
	out = append(out, u.Emails...)
	return out
}

func userCompany(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.Company
}
