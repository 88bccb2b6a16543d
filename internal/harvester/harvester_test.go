package harvester

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/providerclients"
)

func TestExtractKeywords(t *testing.T) {
	kws := ExtractKeywords("Quarterly Roadmap Planning Sync", "Discuss the infra migration timeline and budget")
	assert.Contains(t, kws, "quarterly")
	assert.Contains(t, kws, "roadmap")
	assert.Contains(t, kws, "planning")
	assert.NotContains(t, kws, "sync") // filtered: too generic a meeting-type word
	assert.LessOrEqual(t, len(kws), maxKeywords)
}

func TestParticipantOverlap(t *testing.T) {
	participants := []string{"alice@acme.test", "bob@acme.test"}
	assert.Equal(t, 1.0, ParticipantOverlap(participants, []string{"alice@acme.test"}))
	assert.Equal(t, 0.0, ParticipantOverlap(participants, []string{"carol@acme.test"}))
	assert.Equal(t, 1.0, ParticipantOverlap(participants, nil))
}

func TestOverlapThreshold(t *testing.T) {
	assert.Equal(t, 1.0, OverlapThreshold(1))
	assert.Equal(t, 1.0, OverlapThreshold(4))
	assert.Equal(t, 0.75, OverlapThreshold(5))
}

type fakeProviderClient struct {
	messages []providerclients.Message
	files    []providerclients.File
	events   []providerclients.Event
	err      error
}

func (f *fakeProviderClient) ListMessages(ctx context.Context, token string, opts providerclients.ListOptions) ([]providerclients.Message, error) {
	return f.messages, f.err
}
func (f *fakeProviderClient) ListFiles(ctx context.Context, token string, opts providerclients.ListOptions) ([]providerclients.File, error) {
	return f.files, f.err
}
func (f *fakeProviderClient) ListEvents(ctx context.Context, token string, opts providerclients.ListOptions) ([]providerclients.Event, error) {
	return f.events, f.err
}

func TestFetchEmails_FiltersFutureAndOutOfWindowAndDedupes(t *testing.T) {
	meetingStart := time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC)
	meeting := &model.Meeting{
		ID: "m1", Title: "Product sync", Start: meetingStart,
		Attendees: []model.Attendee{{Email: "alice@acme.test"}},
	}

	client := &fakeProviderClient{messages: []providerclients.Message{
		{ID: "e1", From: "alice@acme.test", To: []string{"bob@acme.test"}, Date: meetingStart.Add(-time.Hour)},
		{ID: "e2", From: "alice@acme.test", Date: meetingStart.Add(time.Hour)},                   // after meeting: dropped
		{ID: "e3", From: "alice@acme.test", Date: meetingStart.Add(-800 * 24 * time.Hour)},        // outside 730d lookback
		{ID: "e1", From: "alice@acme.test", Date: meetingStart.Add(-2 * time.Hour)},               // duplicate id, first-seen wins
		{ID: "e4", From: "carol@other.test", Date: meetingStart.Add(-time.Hour)},                  // fails overlap rule
	}}

	h := New(map[model.Provider]providerclients.ProviderClient{model.ProviderGoogle: client})
	acc := &model.Account{ID: "a1", Provider: model.ProviderGoogle, AccessToken: "tok"}

	emails, statuses, err := h.FetchEmails(context.Background(), meeting, []*model.Account{acc})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].OK)
	require.Len(t, emails, 1)
	assert.Equal(t, "e1", emails[0].ID)
	assert.Equal(t, meetingStart.Add(-time.Hour), emails[0].Date) // first-seen-wins copy retained
}

func TestFetchEmails_AllAccountsFailIsTransientError(t *testing.T) {
	meeting := &model.Meeting{ID: "m1", Title: "x", Start: time.Now()}
	client := &fakeProviderClient{err: assert.AnError}
	h := New(map[model.Provider]providerclients.ProviderClient{model.ProviderGoogle: client})
	acc := &model.Account{ID: "a1", Provider: model.ProviderGoogle, AccessToken: "tok"}

	_, statuses, err := h.FetchEmails(context.Background(), meeting, []*model.Account{acc})
	require.Error(t, err)
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].OK)
}

func TestFetchFiles_WindowAndDedup(t *testing.T) {
	meetingStart := time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC)
	meeting := &model.Meeting{ID: "m1", Start: meetingStart, Attendees: []model.Attendee{{Email: "alice@acme.test"}}}

	client := &fakeProviderClient{files: []providerclients.File{
		{ID: "f1", Name: "Plan", MimeType: "application/vnd.google-apps.document", ModifiedTime: meetingStart.Add(-time.Hour)},
		{ID: "f2", Name: "Future", ModifiedTime: meetingStart.Add(time.Hour)},
		{ID: "f1", Name: "PlanDup", ModifiedTime: meetingStart.Add(-2 * time.Hour)},
	}}
	h := New(map[model.Provider]providerclients.ProviderClient{model.ProviderGoogle: client})
	acc := &model.Account{ID: "a1", Provider: model.ProviderGoogle, AccessToken: "tok"}

	files, _, err := h.FetchFiles(context.Background(), meeting, []*model.Account{acc})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "f1", files[0].ID)
	assert.Equal(t, model.MimeClassDocument, files[0].MimeClass)
}

func TestFetchCalendar_Within180Days(t *testing.T) {
	meetingStart := time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC)
	meeting := &model.Meeting{ID: "m1", Start: meetingStart}

	client := &fakeProviderClient{events: []providerclients.Event{
		{ID: "c1", Title: "Old 1:1", Start: meetingStart.Add(-30 * 24 * time.Hour)},
		{ID: "c2", Title: "Too old", Start: meetingStart.Add(-200 * 24 * time.Hour)},
	}}
	h := New(map[model.Provider]providerclients.ProviderClient{model.ProviderGoogle: client})
	acc := &model.Account{ID: "a1", Provider: model.ProviderGoogle, AccessToken: "tok"}

	events, _, err := h.FetchCalendar(context.Background(), meeting, []*model.Account{acc})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "c1", events[0].ID)
}
