package dayprep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/prepd/internal/model"
)

func TestPersonOverlaps_CountsAcrossBriefs(t *testing.T) {
	briefs := []MeetingBrief{
		{Meeting: &model.Meeting{ID: "m1", Start: time.Now()}, Brief: &model.Brief{Attendees: []model.AttendeeProfile{{Email: "a@x.com"}, {Email: "b@x.com"}}}},
		{Meeting: &model.Meeting{ID: "m2", Start: time.Now().Add(time.Hour)}, Brief: &model.Brief{Attendees: []model.AttendeeProfile{{Email: "a@x.com"}}}},
	}
	overlaps := personOverlaps(briefs)
	assert.Equal(t, 2, overlaps["a@x.com"])
	assert.Equal(t, 1, overlaps["b@x.com"])
}

func TestTopicOverlaps_UsesPurposeFallback(t *testing.T) {
	briefs := []MeetingBrief{
		{Meeting: &model.Meeting{ID: "m1", Start: time.Now()}, Brief: &model.Brief{Purpose: "roadmap review"}},
		{Meeting: &model.Meeting{ID: "m2", Start: time.Now()}, Brief: &model.Brief{Purpose: "roadmap review"}},
	}
	overlaps := topicOverlaps(briefs)
	assert.Equal(t, 2, overlaps["roadmap review"])
}

func TestBuild_NoLLM_DegradesToEmptyStages(t *testing.T) {
	a := New(nil, nil)
	briefs := []MeetingBrief{
		{Meeting: &model.Meeting{ID: "m1", Start: time.Now()}, Brief: &model.Brief{Purpose: "sync"}},
	}
	dp := a.Build(context.Background(), "2026-08-01", &model.User{Name: "Alice"}, briefs)
	require.NotNil(t, dp)
	assert.Equal(t, "2026-08-01", dp.Date)
	assert.Empty(t, dp.CrossConflicts)
	assert.Empty(t, dp.Themes)
	assert.Empty(t, dp.Narrative.Orientation)
}

func TestParseNarrativeMarkers_ExtractsAllBlocks(t *testing.T) {
	text := `ORIENTATION: Good morning.
MORNING: First meeting context.
MIDDAY: Lunch break then second meeting.
AFTERNOON: Wrap-up session.
WIN_CONDITION: You leave with a signed-off plan.`
	n := parseNarrativeMarkers(text)
	assert.Equal(t, "Good morning.", n.Orientation)
	assert.Equal(t, "First meeting context.", n.Morning)
	assert.Equal(t, "Lunch break then second meeting.", n.Midday)
	assert.Equal(t, "Wrap-up session.", n.Afternoon)
	assert.Equal(t, "You leave with a signed-off plan.", n.WinCondition)
}

func TestParseNarrativeMarkers_MissingMarkerDegradesToEmpty(t *testing.T) {
	text := `ORIENTATION: Good morning.
MORNING: First meeting context.`
	n := parseNarrativeMarkers(text)
	assert.Equal(t, "Good morning.", n.Orientation)
	assert.Equal(t, "First meeting context.", n.Morning)
	assert.Empty(t, n.Midday)
	assert.Empty(t, n.Afternoon)
	assert.Empty(t, n.WinCondition)
}

func TestAttendeeSpeechHints_DedupesNames(t *testing.T) {
	briefs := []MeetingBrief{
		{Brief: &model.Brief{Attendees: []model.AttendeeProfile{{Name: "Bob"}, {Name: "Alice"}}}},
		{Brief: &model.Brief{Attendees: []model.AttendeeProfile{{Name: "Bob"}}}},
	}
	hints := attendeeSpeechHints(briefs)
	assert.Equal(t, "Bob, Alice", hints)
}
