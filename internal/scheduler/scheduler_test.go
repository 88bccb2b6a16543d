package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/prepd/internal/classifier"
	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/coordinator"
	"github.com/codeready-toolchain/prepd/internal/harvester"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/providerclients"
	"github.com/codeready-toolchain/prepd/internal/purpose"
	"github.com/codeready-toolchain/prepd/internal/relevance"
	"github.com/codeready-toolchain/prepd/internal/researcher"
	"github.com/codeready-toolchain/prepd/internal/store"
	"github.com/codeready-toolchain/prepd/internal/synthesizer"
	"github.com/codeready-toolchain/prepd/internal/tokenguard"
)

// fakeProviderClient serves a fixed event list regardless of the
// requested window, the same fully-faked-external idiom used by
// internal/coordinator's tests.
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

func testAccount(userID string) *model.Account {
	exp := time.Now().Add(time.Hour)
	return &model.Account{
		ID: userID + "-acct", UserID: userID, Provider: model.ProviderGoogle,
		Email: userID + "@acme.test", AccessToken: "token", ExpiresAt: &exp,
		Status: model.AccountStatusActive,
	}
}

func newTestScheduler(fs *store.FakeStore, pc *fakeProviderClient, cfg *config.SchedulerConfig) *Scheduler {
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
	return New(fs, guard, clients, co, nil, cfg)
}

// Scenario E (spec.md §8): the hourly sweep runs twice in the same clock
// hour; a meeting 75 minutes out already has a brief by the second run,
// which must skip it rather than regenerate it.
func TestHourlySweep_SecondRunSkipsAlreadyBriefedMeeting(t *testing.T) {
	now := time.Now()
	fs := store.NewFakeStore()
	u := &model.User{ID: "u1", Email: "u1@acme.test", Timezone: "UTC"}
	fs.SeedUser(u, testAccount("u1"))

	pc := &fakeProviderClient{events: []providerclients.Event{
		{ID: "m1", Title: "Roadmap sync", Start: now.Add(75 * time.Minute), End: now.Add(105 * time.Minute),
			Attendees: []providerclients.EventAttendee{{Email: "carol@acme.test"}}},
	}}
	cfg := config.DefaultSchedulerConfig()
	s := newTestScheduler(fs, pc, cfg)

	firstRun := s.hourlySweep(context.Background(), u, now)
	assert.Equal(t, 1, firstRun.BriefsGenerated)
	assert.Equal(t, 0, firstRun.MeetingsSkipped)
	first, err := fs.GetBrief(context.Background(), "u1", "m1")
	require.NoError(t, err)
	require.NotNil(t, first, "first sweep should have generated a brief")

	secondRun := s.hourlySweep(context.Background(), u, now)
	assert.Equal(t, 0, secondRun.BriefsGenerated)
	assert.Equal(t, 1, secondRun.MeetingsSkipped)
	second, err := fs.GetBrief(context.Background(), "u1", "m1")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
}

func TestMidnightBatch_SkipsZeroAttendeeAndAllDayMeetings(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	fs := store.NewFakeStore()
	u := &model.User{ID: "u1", Email: "u1@acme.test", Timezone: "UTC"}
	fs.SeedUser(u, testAccount("u1"))

	pc := &fakeProviderClient{events: []providerclients.Event{
		{ID: "solo", Title: "Focus block", Start: now.Add(3 * time.Hour), End: now.Add(4 * time.Hour)},
		{ID: "allday", Title: "Company holiday", Start: now.Truncate(24 * time.Hour), End: now.Add(24 * time.Hour),
			Attendees: []providerclients.EventAttendee{{Email: "carol@acme.test"}}},
		{ID: "real", Title: "1:1 with Dana", Start: now.Add(10 * time.Hour), End: now.Add(10*time.Hour + 30*time.Minute),
			Attendees: []providerclients.EventAttendee{{Email: "dana@acme.test"}}},
	}}
	cfg := config.DefaultSchedulerConfig()
	s := newTestScheduler(fs, pc, cfg)

	s.midnightBatch(context.Background(), u, now)

	_, err := fs.GetBrief(context.Background(), "u1", "solo")
	require.NoError(t, err)
	soloBrief, _ := fs.GetBrief(context.Background(), "u1", "solo")
	assert.Nil(t, soloBrief, "zero-attendee meeting should never be briefed")

	alldayBrief, _ := fs.GetBrief(context.Background(), "u1", "allday")
	assert.Nil(t, alldayBrief, "midnight-start meeting should be treated as all-day and skipped")

	realBrief, _ := fs.GetBrief(context.Background(), "u1", "real")
	assert.NotNil(t, realBrief, "a real timed meeting with an attendee should be briefed")
}

func TestMidnightBatch_Idempotent_SecondCallIsNoOp(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	fs := store.NewFakeStore()
	u := &model.User{ID: "u1", Email: "u1@acme.test", Timezone: "UTC"}
	fs.SeedUser(u, testAccount("u1"))
	pc := &fakeProviderClient{}
	s := newTestScheduler(fs, pc, config.DefaultSchedulerConfig())

	s.midnightBatch(context.Background(), u, now)
	done, err := fs.BucketDone(context.Background(), "midnight_batch", "2026-08-01", "u1")
	require.NoError(t, err)
	assert.True(t, done)

	// A second call must short-circuit on the bucket check without
	// re-listing events (fakeProviderClient has none to serve anyway, so
	// this mainly documents the expected control flow).
	s.midnightBatch(context.Background(), u, now)
}

func TestReminderSweep_DedupesWithinDay(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	fs := store.NewFakeStore()
	u := &model.User{ID: "u1", Email: "u1@acme.test", Timezone: "UTC"}
	fs.SeedUser(u, testAccount("u1"))

	cfg := config.DefaultSchedulerConfig()
	pc := &fakeProviderClient{events: []providerclients.Event{
		{ID: "m1", Title: "Standup", Start: now.Add(cfg.ReminderLeadTime), End: now.Add(cfg.ReminderLeadTime + 30*time.Minute),
			Attendees: []providerclients.EventAttendee{{Email: "carol@acme.test"}}},
	}}
	s := newTestScheduler(fs, pc, cfg)

	s.reminderSweep(context.Background(), u, now)
	sentOnce, err := fs.ReminderSent(context.Background(), "u1", "m1", now.Truncate(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, sentOnce)

	// Running again in the same minute (e.g. overlap between two ticks)
	// must not error and must remain deduped for the rest of the day.
	s.reminderSweep(context.Background(), u, now.Add(30*time.Second))
	sentStill, err := fs.ReminderSent(context.Background(), "u1", "m1", now.Truncate(24*time.Hour))
	require.NoError(t, err)
	assert.True(t, sentStill)
}

func TestDailySummary_OncePerBucketPerDay(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	fs := store.NewFakeStore()
	u := &model.User{ID: "u1", Email: "u1@acme.test", Timezone: "UTC"}
	fs.SeedUser(u, testAccount("u1"))
	pc := &fakeProviderClient{events: []providerclients.Event{
		{ID: "m1", Title: "Standup", Start: now.Add(2 * time.Hour), End: now.Add(2*time.Hour + 15*time.Minute)},
	}}
	s := newTestScheduler(fs, pc, config.DefaultSchedulerConfig())

	s.dailySummary(context.Background(), u, now)
	done, err := fs.BucketDone(context.Background(), "daily_summary", "2026-08-01", "u1")
	require.NoError(t, err)
	assert.True(t, done)

	s.dailySummary(context.Background(), u, now) // should be a no-op, exercised for panics only
}

// Exercises the manual-trigger surface spec.md §6 names for
// `POST /cron/generate-hourly-briefs`: a fresh run generates and a
// repeat run against the same data reports the meeting as skipped.
func TestRunHourlyBriefs_ReportsUsersCheckedAndIdempotence(t *testing.T) {
	now := time.Now()
	fs := store.NewFakeStore()
	u := &model.User{ID: "u1", Email: "u1@acme.test", Timezone: "UTC"}
	fs.SeedUser(u, testAccount("u1"))
	pc := &fakeProviderClient{events: []providerclients.Event{
		{ID: "m1", Title: "Roadmap sync", Start: now.Add(75 * time.Minute), End: now.Add(105 * time.Minute),
			Attendees: []providerclients.EventAttendee{{Email: "carol@acme.test"}}},
	}}
	s := newTestScheduler(fs, pc, config.DefaultSchedulerConfig())

	first, err := s.RunHourlyBriefs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.UsersChecked)
	assert.Equal(t, 1, first.BriefsGenerated)
	assert.Equal(t, 0, first.MeetingsSkipped)

	second, err := s.RunHourlyBriefs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.UsersChecked)
	assert.Equal(t, 0, second.BriefsGenerated)
	assert.Equal(t, 1, second.MeetingsSkipped)
}

func TestNextHourAndMinuteBoundary_AreStrictlyAfterNow(t *testing.T) {
	now := time.Date(2026, 8, 1, 14, 37, 22, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 1, 15, 0, 0, 0, time.UTC), nextHourBoundary(now))
	assert.Equal(t, time.Date(2026, 8, 1, 14, 38, 0, 0, time.UTC), nextMinuteBoundary(now))
}
