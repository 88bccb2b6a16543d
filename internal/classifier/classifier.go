// Package classifier is EventClassifier (spec.md §4.4): it labels a raw
// calendar item as meeting / public-event / personal-reminder / leisure /
// travel / unknown and picks the prep depth that authorizes (or
// short-circuits) the downstream pipeline.
package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/llmclient"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// Classifier runs the single-LLM-call-then-rule-cascade algorithm.
type Classifier struct {
	llm      llmclient.Client
	provider *config.LLMProviderConfig
}

// New builds a Classifier that calls llm using provider's settings.
func New(llm llmclient.Client, provider *config.LLMProviderConfig) *Classifier {
	return &Classifier{llm: llm, provider: provider}
}

// lowConfidenceThreshold is the cutoff below which an "unknown" LLM
// verdict is discarded in favor of the deterministic rule cascade.
const lowConfidenceThreshold = 0.5

// features are the normalized signals given to the LLM alongside the raw
// event, and reused directly by the rule cascade on LLM failure.
type features struct {
	attendeeCount   int
	userIsOrganizer bool
	userIsAttendee  bool
	organizerEmail  string
}

func computeFeatures(meeting *model.Meeting, userEmails []string) features {
	f := features{
		attendeeCount:  len(model.HumanAttendees(meeting.Attendees)),
		organizerEmail: meeting.Organizer,
	}
	owns := func(addr string) bool {
		addr = strings.ToLower(strings.TrimSpace(addr))
		for _, e := range userEmails {
			if strings.ToLower(strings.TrimSpace(e)) == addr {
				return true
			}
		}
		return false
	}
	f.userIsOrganizer = owns(meeting.Organizer)
	for _, a := range meeting.Attendees {
		if owns(a.Email) {
			f.userIsAttendee = true
			break
		}
	}
	return f
}

// Classify is pure with respect to (meeting fields, userEmails): it never
// consults hidden process state, satisfying spec.md §8 invariant 8.
func (c *Classifier) Classify(ctx context.Context, meeting *model.Meeting, userEmails []string) (*model.Classification, error) {
	f := computeFeatures(meeting, userEmails)

	if c.llm != nil {
		if cls, ok := c.classifyViaLLM(ctx, meeting, f); ok {
			return cls, nil
		}
	}
	return classifyViaRules(meeting, f), nil
}

type llmClassification struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (c *Classifier) classifyViaLLM(ctx context.Context, meeting *model.Meeting, f features) (*model.Classification, bool) {
	prompt := fmt.Sprintf(`Classify this calendar event. Respond with JSON only: {"type": one of meeting|public_event|personal_reminder|leisure|travel|unknown, "confidence": 0-1, "reason": short string}.

Title: %s
Description: %s
Attendee count (excluding resource calendars): %d
User is organizer: %v
User is attendee: %v
Organizer email: %s`, meeting.Title, meeting.Description, f.attendeeCount, f.userIsOrganizer, f.userIsAttendee, f.organizerEmail)

	resp, err := llmclient.Call(ctx, c.llm, llmclient.Request{
		Provider: c.provider,
		Messages: []llmclient.Message{{Role: llmclient.RoleUser, Content: prompt}},
		JSONMode: true,
	})
	if err != nil {
		return nil, false
	}

	var parsed llmClassification
	if _, err := llmclient.ParseJSON(resp.Text, &parsed); err != nil {
		return nil, false
	}

	et := model.EventType(parsed.Type)
	if !validEventType(et) {
		return nil, false
	}
	if et == model.EventTypeUnknown && parsed.Confidence < lowConfidenceThreshold {
		return nil, false // falls through to the deterministic cascade
	}

	depth := prepDepthFor(et)
	return &model.Classification{
		Type:       et,
		Confidence: parsed.Confidence,
		PrepDepth:  depth,
		ShouldPrep: depth == model.PrepDepthFull,
		Reason:     parsed.Reason,
	}, true
}

func validEventType(t model.EventType) bool {
	switch t {
	case model.EventTypeMeeting, model.EventTypePublicEvent, model.EventTypePersonalReminder,
		model.EventTypeLeisure, model.EventTypeTravel, model.EventTypeUnknown:
		return true
	default:
		return false
	}
}

// prepDepthFor maps an event type to its default prep depth, used when the
// LLM path (not the rule cascade, which sets depth explicitly per rule)
// classifies an event.
func prepDepthFor(t model.EventType) model.PrepDepth {
	switch t {
	case model.EventTypeMeeting:
		return model.PrepDepthFull
	case model.EventTypePersonalReminder:
		return model.PrepDepthNone
	default:
		return model.PrepDepthMinimal
	}
}
