package researcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/webresearch"
)

func TestResolveName_PrefersDisplayName(t *testing.T) {
	a := model.Attendee{Email: "bob@acme.test", DisplayName: "Bob Jones"}
	assert.Equal(t, "Bob Jones", ResolveName(a, nil, nil))
}

func TestResolveName_FallsBackToHistory(t *testing.T) {
	a := model.Attendee{Email: "bob@acme.test"}
	history := []model.CalendarArtifact{{
		Attendees: []model.Attendee{{Email: "bob@acme.test", DisplayName: "Bob from history"}},
	}}
	assert.Equal(t, "Bob from history", ResolveName(a, history, nil))
}

func TestResolveName_FallsBackToHeaders(t *testing.T) {
	a := model.Attendee{Email: "bob@acme.test"}
	emails := []model.EmailArtifact{{From: `"Bob Header" <bob@acme.test>`}}
	assert.Equal(t, "Bob Header", ResolveName(a, nil, emails))
}

func TestResolveName_FallsBackToLocalPart(t *testing.T) {
	a := model.Attendee{Email: "bob.jones@acme.test"}
	assert.Equal(t, "bob.jones", ResolveName(a, nil, nil))
}

func TestInferCompany_Capitalized(t *testing.T) {
	assert.Equal(t, "Acme", InferCompany("bob@acme.test"))
}

func TestInferCompany_Educational(t *testing.T) {
	assert.Equal(t, "Student", InferCompany("bob@university.edu"))
	assert.Equal(t, "Student", InferCompany("bob@uni.ac.uk"))
}

func TestInferCompany_GenericProvider(t *testing.T) {
	assert.Equal(t, "", InferCompany("bob@gmail.com"))
}

func TestCollectEvidence_DedupesAndCaps(t *testing.T) {
	var emails []model.EmailArtifact
	for i := 0; i < 25; i++ {
		emails = append(emails, model.EmailArtifact{ID: "dup", From: "bob@acme.test"})
	}
	out := collectEvidence("bob@acme.test", emails)
	assert.Len(t, out, 1)
}

func TestCollectEvidence_MatchesToAddress(t *testing.T) {
	emails := []model.EmailArtifact{{ID: "e1", From: "alice@acme.test", To: []string{"bob@acme.test"}}}
	out := collectEvidence("bob@acme.test", emails)
	require.Len(t, out, 1)
}

func TestParseFactsLenient_StringArray(t *testing.T) {
	facts := parseFactsLenient(`["fact one", "fact two"]`)
	assert.Equal(t, []string{"fact one", "fact two"}, facts)
}

func TestParseFactsLenient_ObjectArray(t *testing.T) {
	facts := parseFactsLenient(`[{"fact": "fact one"}, {"text": "fact two"}]`)
	assert.ElementsMatch(t, []string{"fact one", "fact two"}, facts)
}

func TestFallbackFacts_CapsAtThree(t *testing.T) {
	a := model.Attendee{Email: "bob@acme.test", DisplayName: "Bob"}
	evidence := []model.EmailArtifact{{Subject: "Q3 planning"}}
	facts := fallbackFacts(a, evidence, "Acme")
	assert.LessOrEqual(t, len(facts), 3)
	assert.NotEmpty(t, facts)
}

func TestDedupeFacts_RemovesNearDuplicates(t *testing.T) {
	facts := []string{
		"Bob works at Acme Corporation as a senior engineer on the platform team",
		"Bob works at Acme Corporation as a senior engineer",
		"Bob enjoys hiking on weekends",
	}
	out := dedupeFacts(facts)
	assert.Len(t, out, 2)
}

func TestValidateResult_MatchesNameToken(t *testing.T) {
	r := webresearch.Result{Title: "Bob Jones - Engineer", URL: "https://linkedin.com/in/bobjones"}
	assert.True(t, validateResult(r, "Bob Jones", "bob@acme.test", "Acme"))
}

func TestValidateResult_RejectsUnrelated(t *testing.T) {
	r := webresearch.Result{Title: "Unrelated Person", Excerpt: "nothing in common", URL: "https://example.com"}
	assert.False(t, validateResult(r, "Bob Jones", "bob@acme.test", "Acme"))
}

func TestResearch_NoLLMNoSearcher_ReturnsBasicProfile(t *testing.T) {
	r := New(nil, nil, nil, config.DefaultScoringConfig())
	meeting := &model.Meeting{Start: time.Now()}
	attendee := model.Attendee{Email: "bob@gmail.com"}
	profile, err := r.Research(context.Background(), meeting, attendee, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "basic", profile.DataSource)
	assert.NotEmpty(t, profile.Facts)
}

func TestResearch_WithEmailEvidence_TaggedLocal(t *testing.T) {
	r := New(nil, nil, nil, config.DefaultScoringConfig())
	meeting := &model.Meeting{Start: time.Now()}
	attendee := model.Attendee{Email: "bob@acme.test"}
	emails := []model.EmailArtifact{{ID: "e1", From: "bob@acme.test", Subject: "Roadmap review"}}
	profile, err := r.Research(context.Background(), meeting, attendee, emails, nil)
	require.NoError(t, err)
	assert.Equal(t, "local", profile.DataSource)
}

func TestResearch_RefusesResourceCalendar(t *testing.T) {
	r := New(nil, nil, nil, config.DefaultScoringConfig())
	meeting := &model.Meeting{Start: time.Now()}
	attendee := model.Attendee{Email: "room-5@resource.calendar.google.com"}
	_, err := r.Research(context.Background(), meeting, attendee, nil, nil)
	assert.Error(t, err)
}

func TestResearchAll_CapsAtMaxResearchedAttendees(t *testing.T) {
	scoring := config.DefaultScoringConfig()
	scoring.MaxResearchedAttendees = 2
	r := New(nil, nil, nil, scoring)

	var attendees []model.Attendee
	for i := 0; i < 5; i++ {
		attendees = append(attendees, model.Attendee{Email: string(rune('a'+i)) + "@acme.test"})
	}
	meeting := &model.Meeting{Start: time.Now(), Attendees: attendees}

	profiles, skipped := r.ResearchAll(context.Background(), meeting, nil, nil)
	assert.Len(t, profiles, 2)
	assert.Len(t, skipped, 3)
}

func TestResearchAll_ExcludesResourceCalendars(t *testing.T) {
	r := New(nil, nil, nil, config.DefaultScoringConfig())
	meeting := &model.Meeting{
		Start: time.Now(),
		Attendees: []model.Attendee{
			{Email: "bob@acme.test"},
			{Email: "room@resource.calendar.google.com"},
		},
	}
	profiles, _ := r.ResearchAll(context.Background(), meeting, nil, nil)
	require.Len(t, profiles, 1)
	assert.Equal(t, "bob@acme.test", profiles[0].Email)
}
