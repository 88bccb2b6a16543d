package relevance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/model"
)

func TestThreadKey_NormalizesReplyPrefixes(t *testing.T) {
	e1 := model.EmailArtifact{Subject: "Budget review", From: "a@x.test", To: []string{"b@x.test"}}
	e2 := model.EmailArtifact{Subject: "Re: Budget review", From: "b@x.test", To: []string{"a@x.test"}}
	assert.Equal(t, threadKey(e1), threadKey(e2))
}

func TestGroupThreads_CountsMessagesAndDateRange(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	emails := []model.EmailArtifact{
		{Subject: "Plan", From: "a@x.test", To: []string{"b@x.test"}, Date: base},
		{Subject: "Re: Plan", From: "b@x.test", To: []string{"a@x.test"}, Date: base.AddDate(0, 0, 2)},
	}
	threads := groupThreads(emails)
	assert.Len(t, threads, 1)
	for _, tm := range threads {
		assert.Equal(t, 2, tm.MessageCount)
		assert.Equal(t, "2025-01-01", tm.DateRange[0])
		assert.Equal(t, "2025-01-03", tm.DateRange[1])
	}
}

func TestIsDuplicateFact_PrefixContainment(t *testing.T) {
	assert.True(t, isDuplicateFact("Alice is blocked on the API migration", "Alice is blocked on the API migration due to a vendor delay"))
	assert.False(t, isDuplicateFact("Alice is blocked on the API migration", "Bob shipped the new dashboard"))
}

func TestDedupeFacts(t *testing.T) {
	facts := []string{
		"Alice is blocked on the API migration",
		"Alice is blocked on the API migration due to vendor delay",
		"Bob shipped the new dashboard last week",
	}
	out := dedupeFacts(facts)
	assert.Len(t, out, 2)
}

func TestRecencyScore_DecaysWithAge(t *testing.T) {
	now := time.Now()
	recent := RecencyScore(now.Add(-24*time.Hour), now, 0.015)
	old := RecencyScore(now.Add(-365*24*time.Hour), now, 0.015)
	assert.Greater(t, recent, old)
	assert.LessOrEqual(t, recent, 1.0)
}

func TestRankByTemporalScore_NewerFirst(t *testing.T) {
	now := time.Now()
	older := model.EmailArtifact{ID: "old", Date: now.Add(-100 * 24 * time.Hour)}
	newer := model.EmailArtifact{ID: "new", Date: now.Add(-1 * time.Hour)}
	scoring := config.DefaultScoringConfig()
	ranked := rankByTemporalScore([]model.EmailArtifact{older, newer}, scoring)
	assert.Equal(t, "new", ranked[0].ID)
}

func TestDetectStaleness_FlagsOldYearAndRelativeTime(t *testing.T) {
	meetingStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	content := "As discussed last week, the 2021 roadmap is outdated."
	warnings := DetectStaleness(content, meetingStart)
	assert.NotEmpty(t, warnings)
}

func TestDetectStaleness_NoWarningsForCurrentContent(t *testing.T) {
	meetingStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	content := "The Q2 2025 roadmap looks solid."
	warnings := DetectStaleness(content, meetingStart)
	assert.Empty(t, warnings)
}

func TestDocBandAndEmailBand_Monotonic(t *testing.T) {
	low := docBand(0.2)
	high := docBand(0.9)
	assert.Less(t, low.max, high.max)

	lowE := emailBand(0.2)
	highE := emailBand(0.9)
	assert.Less(t, lowE.max, highE.max)
}

func TestAppendExtraction_ConcatenatesFields(t *testing.T) {
	a := ExtractedContext{Blockers: []string{"a"}}
	b := ExtractedContext{Blockers: []string{"b"}}
	merged := appendExtraction(a, b)
	assert.Equal(t, []string{"a", "b"}, merged.Blockers)
}
