package synthesizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/model"
)

func TestSynthesize_NoLLM_DegradesToEmptyFields(t *testing.T) {
	s := New(nil, nil, config.DefaultScoringConfig())
	meeting := &model.Meeting{ID: "m1", Title: "Roadmap sync", Start: time.Now()}
	in := Input{Meeting: meeting, User: &model.User{ID: "u1", Name: "Alice"}}

	brief := s.Synthesize(context.Background(), in)
	require.NotNil(t, brief)
	assert.Equal(t, "m1", brief.MeetingID)
	assert.Equal(t, "u1", brief.UserID)
	assert.Equal(t, "insufficient", brief.Trend)
	assert.Empty(t, brief.RelationshipAnalysis)
	assert.Len(t, brief.Timeline, 1) // the pinned reference event
	assert.True(t, brief.Timeline[0].IsReference)
}

func TestComputeTrend_InsufficientBelowMinimum(t *testing.T) {
	scoring := config.DefaultScoringConfig()
	timeline := []model.TimelineEvent{{Date: time.Now()}}
	assert.Equal(t, "insufficient", computeTrend(timeline, scoring))
}

func TestComputeTrend_IncreasingWhenRecentDense(t *testing.T) {
	scoring := config.DefaultScoringConfig()
	now := time.Now()
	var timeline []model.TimelineEvent
	for i := 0; i < 2; i++ {
		timeline = append(timeline, model.TimelineEvent{Date: now.Add(-time.Duration(20+i) * 24 * time.Hour)})
	}
	for i := 0; i < 10; i++ {
		timeline = append(timeline, model.TimelineEvent{Date: now.Add(-time.Duration(i) * time.Hour)})
	}
	assert.Equal(t, "increasing", computeTrend(timeline, scoring))
}

func TestMergeTimelineCandidates_CombinesAllSources(t *testing.T) {
	in := Input{
		Emails:          []model.EmailArtifact{{ID: "e1", Date: time.Now()}},
		Documents:       []model.DocumentArtifact{{ID: "d1", ModifiedTime: time.Now()}},
		CalendarHistory: []model.CalendarArtifact{{ID: "c1", Start: time.Now()}},
	}
	out := mergeTimelineCandidates(in)
	assert.Len(t, out, 3)
}

func TestFilterToLookback_ExcludesOldAndFuture(t *testing.T) {
	ref := time.Now()
	events := []model.TimelineEvent{
		{ID: "old", Date: ref.Add(-200 * 24 * time.Hour)},
		{ID: "recent", Date: ref.Add(-10 * 24 * time.Hour)},
		{ID: "future", Date: ref.Add(time.Hour)},
	}
	out := filterToLookback(events, ref)
	require.Len(t, out, 1)
	assert.Equal(t, "recent", out[0].ID)
}

func TestBuildTimeline_PinsReferenceAndSortsDescending(t *testing.T) {
	s := New(nil, nil, config.DefaultScoringConfig())
	now := time.Now()
	in := Input{
		Meeting: &model.Meeting{ID: "m1", Title: "Sync", Start: now},
		Emails: []model.EmailArtifact{
			{ID: "e1", Date: now.Add(-48 * time.Hour)},
			{ID: "e2", Date: now.Add(-2 * time.Hour)},
		},
	}
	timeline, err := s.buildTimeline(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	assert.True(t, timeline[0].IsReference)
}
