package harvester

import (
	"strings"

	"github.com/codeready-toolchain/prepd/internal/model"
)

// OverlapThreshold returns the attendee-overlap fraction an email's
// participant set must meet to qualify for relevance analysis (spec.md §3):
// 100% for small meetings (≤4 attendees), 75% for larger ones. A meeting
// with zero attendees bypasses the filter entirely (the harvester falls
// back to a keyword-only query and PurposeDetector/RelevanceFilterPipeline
// see every harvested email).
func OverlapThreshold(attendeeCount int) float64 {
	if attendeeCount <= 4 {
		return 1.0
	}
	return 0.75
}

// ParticipantOverlap computes the fraction of attendeeEmails that appear
// among participants (case-insensitive). Resource-calendar addresses must
// already be excluded from attendeeEmails by the caller (spec_full.md §10).
func ParticipantOverlap(participants, attendeeEmails []string) float64 {
	if len(attendeeEmails) == 0 {
		return 1.0
	}
	set := make(map[string]bool, len(participants))
	for _, p := range participants {
		set[strings.ToLower(strings.TrimSpace(p))] = true
	}
	matched := 0
	for _, a := range attendeeEmails {
		if set[strings.ToLower(strings.TrimSpace(a))] {
			matched++
		}
	}
	return float64(matched) / float64(len(attendeeEmails))
}

// PassesOverlap reports whether an email qualifies for relevance analysis
// against the given meeting's human attendees.
func PassesOverlap(e *model.EmailArtifact, meeting *model.Meeting) bool {
	attendees := meeting.AttendeeEmails()
	if len(attendees) == 0 {
		return true
	}
	overlap := ParticipantOverlap(e.Participants(), attendees)
	return overlap >= OverlapThreshold(len(attendees))
}
