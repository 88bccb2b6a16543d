package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/prepd/internal/classifier"
	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/coordinator"
	"github.com/codeready-toolchain/prepd/internal/dayprep"
	"github.com/codeready-toolchain/prepd/internal/harvester"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/providerclients"
	"github.com/codeready-toolchain/prepd/internal/purpose"
	"github.com/codeready-toolchain/prepd/internal/relevance"
	"github.com/codeready-toolchain/prepd/internal/researcher"
	"github.com/codeready-toolchain/prepd/internal/scheduler"
	"github.com/codeready-toolchain/prepd/internal/store"
	"github.com/codeready-toolchain/prepd/internal/synthesizer"
	"github.com/codeready-toolchain/prepd/internal/tokenguard"
)

type fakeProviderClient struct {
	events []providerclients.Event
}

func (f *fakeProviderClient) ListMessages(context.Context, string, providerclients.ListOptions) ([]providerclients.Message, error) {
	return nil, nil
}

func (f *fakeProviderClient) ListFiles(context.Context, string, providerclients.ListOptions) ([]providerclients.File, error) {
	return nil, nil
}

func (f *fakeProviderClient) ListEvents(_ context.Context, _ string, opts providerclients.ListOptions) ([]providerclients.Event, error) {
	var out []providerclients.Event
	for _, e := range f.events {
		if !e.Start.Before(opts.Window.After) && e.Start.Before(opts.Window.Before) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeRefresher struct{}

func (fakeRefresher) Refresh(_ context.Context, a *model.Account) (string, time.Time, error) {
	return "refreshed-token", time.Now().Add(time.Hour), nil
}

func newTestServer(fs *store.FakeStore, pc *fakeProviderClient) *Server {
	guard := tokenguard.New(fs, fakeRefresher{}, 5*time.Minute)
	clients := map[model.Provider]providerclients.ProviderClient{model.ProviderGoogle: pc}
	h := harvester.New(clients)
	scoring := config.DefaultScoringConfig()
	co := coordinator.New(
		guard, h,
		classifier.New(nil, nil),
		purpose.New(nil, nil),
		relevance.New(nil, nil, config.DefaultBatchConfig(), scoring),
		researcher.New(nil, nil, nil, scoring),
		synthesizer.New(nil, nil, scoring),
	)
	dp := dayprep.New(nil, nil)
	pur := purpose.New(nil, nil)
	sch := scheduler.New(fs, guard, clients, co, nil, config.DefaultSchedulerConfig())

	cfg := &config.HTTPConfig{Port: "0", GinMode: "test"}
	return NewServer(cfg, fs, guard, clients, co, dp, pur, sch)
}

func testAccount(userID string) *model.Account {
	exp := time.Now().Add(time.Hour)
	return &model.Account{
		ID: userID + "-acct", UserID: userID, Provider: model.ProviderGoogle,
		Email: userID + "@acme.test", AccessToken: "token", ExpiresAt: &exp,
		Status: model.AccountStatusActive,
	}
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	srv := newTestServer(store.NewFakeStore(), &fakeProviderClient{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlePrep_MissingIdentity_Returns401(t *testing.T) {
	srv := newTestServer(store.NewFakeStore(), &fakeProviderClient{})
	body, _ := json.Marshal(prepRequest{Meeting: model.Meeting{ID: "m1", Title: "Sync"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prep", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlePrep_StreamsNdjsonEndingInComplete(t *testing.T) {
	fs := store.NewFakeStore()
	u := &model.User{ID: "u1", Email: "bob@acme.test", Timezone: "UTC"}
	fs.SeedUser(u, testAccount("u1"))
	srv := newTestServer(fs, &fakeProviderClient{})

	body, _ := json.Marshal(prepRequest{Meeting: model.Meeting{
		ID: "m1", Title: "Product sync", Start: time.Now().Add(time.Hour),
		Attendees: []model.Attendee{{Email: "alice@acme.test"}},
	}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/prep", bytes.NewReader(body))
	req.Header.Set("X-Forwarded-User", "u1")
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	var last model.StreamEvent
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var ev model.StreamEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		last = ev
	}
	assert.Equal(t, model.StreamEventComplete, last.Type)
	require.NotNil(t, last.Brief)
}

func TestHandlePurpose_NonMeeting_ReturnsLowConfidence(t *testing.T) {
	srv := newTestServer(store.NewFakeStore(), &fakeProviderClient{})
	body, _ := json.Marshal(purposeRequest{Meeting: model.Meeting{ID: "m1", Title: "Flight to SFO"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/purpose", bytes.NewReader(body))
	req.Header.Set("X-Forwarded-User", "u1")
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result model.PurposeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.Source)
	assert.Less(t, result.Confidence, 0.4)
}

func TestHandleDayPrep_ReturnsMeetingsAndDayPrep(t *testing.T) {
	fs := store.NewFakeStore()
	u := &model.User{ID: "u1", Email: "bob@acme.test", Timezone: "UTC"}
	fs.SeedUser(u, testAccount("u1"))
	day := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	pc := &fakeProviderClient{events: []providerclients.Event{
		{ID: "m1", Title: "Roadmap review", Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour),
			Attendees: []providerclients.EventAttendee{{Email: "carol@acme.test"}}},
	}}
	srv := newTestServer(fs, pc)

	body, _ := json.Marshal(dayPrepRequest{Date: "2026-08-03"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/day-prep", bytes.NewReader(body))
	req.Header.Set("X-Forwarded-User", "u1")
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dayPrepResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2026-08-03", resp.Date)
	require.Len(t, resp.Meetings, 1)
	require.Len(t, resp.PrepResults, 1)
	require.NotNil(t, resp.DayPrep)
}

func TestHandleCronHourly_ReturnsSummary(t *testing.T) {
	fs := store.NewFakeStore()
	u := &model.User{ID: "u1", Email: "bob@acme.test", Timezone: "UTC"}
	fs.SeedUser(u, testAccount("u1"))
	srv := newTestServer(fs, &fakeProviderClient{})

	req := httptest.NewRequest(http.MethodPost, "/cron/generate-hourly-briefs", nil)
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var summary scheduler.TickSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.UsersChecked)
}
