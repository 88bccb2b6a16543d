package classifier

import (
	"regexp"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/model"
)

var (
	conferenceKeywords = []string{"conference", "summit", "webinar", "expo", "keynote"}
	reminderKeywords   = []string{"reminder", "deadline", "due", "submit", "renew", "pay"}
	leisureKeywords    = []string{"birthday", "party", "dinner", "vacation", "holiday", "gym", "yoga", "lunch with friends"}
	businessKeywords   = []string{"project", "client", "budget", "roadmap", "proposal", "contract", "deal"}
	travelKeywords     = []string{"flight", "airport", "hotel", "travel to", "trip to", "layover"}
	speakerKeywords    = []string{"speaker:", "panelist:", "presenting", "keynote:"}
)

var personMentionPattern = regexp.MustCompile(`(?i)\b(call|meet|sync with|talk to)\s+[A-Z][a-z]+`)

func containsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func classify(t model.EventType, depth model.PrepDepth, confidence float64, reason string) *model.Classification {
	return &model.Classification{
		Type:       t,
		Confidence: confidence,
		PrepDepth:  depth,
		ShouldPrep: depth == model.PrepDepthFull,
		Reason:     reason,
	}
}

// classifyViaRules implements the seven-rule deterministic cascade, fired in
// order, that backstops the LLM call when it fails to parse or returns a
// low-confidence "unknown" (spec.md §4.4).
func classifyViaRules(meeting *model.Meeting, f features) *model.Classification {
	text := meeting.Title + " " + meeting.Description

	// Rule 1: large audience, user a pure attendee, conference-like. A
	// speaker/panelist match skips this rule so rule 5 can claim the event.
	if f.attendeeCount > 20 && f.userIsAttendee && !f.userIsOrganizer && containsAny(text, conferenceKeywords) && !matchesSpeaker(meeting, f) {
		return classify(model.EventTypePublicEvent, model.PrepDepthMinimal, 0.85, "large attendee count with conference keywords, user not organizer")
	}

	// Rule 2: user-only event with reminder language.
	if f.attendeeCount <= 1 {
		hasPerson := personMentionPattern.MatchString(text)
		if containsAny(text, reminderKeywords) && !hasPerson {
			return classify(model.EventTypePersonalReminder, model.PrepDepthNone, 0.8, "reminder keywords, no person mentioned, no other attendees")
		}
		if hasPerson {
			return classify(model.EventTypeMeeting, model.PrepDepthFull, 0.75, "person mentioned in title/description despite no listed attendees")
		}
	}

	// Rule 3: leisure keywords without business context.
	if containsAny(text, leisureKeywords) && !containsAny(text, businessKeywords) {
		return classify(model.EventTypeLeisure, model.PrepDepthMinimal, 0.8, "leisure keywords, no business context")
	}

	// Rule 4: travel keywords.
	if containsAny(text, travelKeywords) {
		return classify(model.EventTypeTravel, model.PrepDepthMinimal, 0.8, "travel keywords")
	}

	// Rule 5: user organizes or is a named speaker/panelist.
	if f.userIsOrganizer || matchesSpeaker(meeting, f) {
		return classify(model.EventTypeMeeting, model.PrepDepthFull, 0.8, "user is organizer or listed speaker/panelist")
	}

	// Rule 6: attendee-count based meeting detection.
	if f.attendeeCount >= 2 {
		return classify(model.EventTypeMeeting, model.PrepDepthFull, 0.7, "multiple non-resource attendees")
	}
	if f.attendeeCount == 1 {
		return classify(model.EventTypeMeeting, model.PrepDepthFull, 0.7, "single non-user attendee, 1-on-1")
	}

	// Rule 7: fallback.
	return classify(model.EventTypeMeeting, model.PrepDepthFull, 0.4, "no rule matched; defaulting to full prep")
}

// matchesSpeaker detects the Scenario D "Speaker: Bob" override. When the
// user is an attendee, it matches if any attendee's display name, or the
// title or description, carries a speaker/panelist marker; it does not
// check that the marked attendee entry is the user's own.
func matchesSpeaker(meeting *model.Meeting, f features) bool {
	if !f.userIsAttendee {
		return false
	}
	for _, a := range meeting.Attendees {
		if containsAny(a.DisplayName, speakerKeywords) {
			return true
		}
	}
	return containsAny(meeting.Title+" "+meeting.Description, speakerKeywords)
}
