// Package scheduler is the autonomous cron surface named in spec.md
// §4.11: a midnight brief pre-warm, a 9am daily-summary dispatch, an
// hourly near-term sweep, and a per-minute reminder sweep, all driven
// from one process's wall clock. Grounded in the teacher's worker-pool
// shutdown idiom (pkg/queue/pool.go's stopCh+sync.Once+sync.WaitGroup,
// pkg/queue/worker.go's select-on-stopCh-or-ctx.Done poll loop) adapted
// from a single job-claiming loop to two fixed-cadence ticks.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/coordinator"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/providerclients"
	"github.com/codeready-toolchain/prepd/internal/push"
	"github.com/codeready-toolchain/prepd/internal/store"
	"github.com/codeready-toolchain/prepd/internal/tokenguard"
)

// maxUpcomingMeetings bounds a single calendar list call made to find
// meetings starting in a scheduler lookahead window.
const maxUpcomingMeetings = 50

// Scheduler drives the autonomous buckets. It holds no meeting data of
// its own; every tick re-derives state from Store and the provider
// clients, so a crash mid-tick is never worse than a skipped tick.
type Scheduler struct {
	store       store.Store
	guard       *tokenguard.Guard
	clients     map[model.Provider]providerclients.ProviderClient
	coordinator *coordinator.Coordinator
	push        *push.Service
	cfg         *config.SchedulerConfig

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(
	s store.Store,
	guard *tokenguard.Guard,
	clients map[model.Provider]providerclients.ProviderClient,
	co *coordinator.Coordinator,
	p *push.Service,
	cfg *config.SchedulerConfig,
) *Scheduler {
	return &Scheduler{
		store: s, guard: guard, clients: clients, coordinator: co, push: p, cfg: cfg,
		stopCh: make(chan struct{}),
	}
}

// Start launches the hourly and per-minute tick loops as background
// goroutines. It is a no-op when the scheduler is disabled in config.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		slog.Info("scheduler: disabled, not starting")
		return
	}
	s.wg.Add(2)
	go s.runHourly(ctx)
	go s.runMinutely(ctx)
}

// Stop signals both loops to exit and waits for them to finish their
// current tick. Safe to call once; a second call is a no-op.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Scheduler) runHourly(ctx context.Context) {
	defer s.wg.Done()
	for {
		if !s.sleepUntil(nextHourBoundary(time.Now())) {
			return
		}
		s.hourlyTick(ctx, time.Now())
	}
}

func (s *Scheduler) runMinutely(ctx context.Context) {
	defer s.wg.Done()
	for {
		if !s.sleepUntil(nextMinuteBoundary(time.Now())) {
			return
		}
		s.minuteTick(ctx, time.Now())
	}
}

// sleepUntil blocks until t or shutdown, whichever comes first. It
// returns false when the scheduler was stopped during the wait, mirroring
// the teacher's worker sleep() helper that races time.After against stopCh
// so Stop() is never blocked behind an in-progress sleep.
func (s *Scheduler) sleepUntil(t time.Time) bool {
	timer := time.NewTimer(time.Until(t))
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.stopCh:
		return false
	}
}

func nextHourBoundary(t time.Time) time.Time {
	return t.Truncate(time.Hour).Add(time.Hour)
}

func nextMinuteBoundary(t time.Time) time.Time {
	return t.Truncate(time.Minute).Add(time.Minute)
}

// TickSummary reports the outcome of one bucket run, the shape spec.md
// §6 requires every `/cron/generate-*-briefs` endpoint to return: "a
// summary of users checked, briefs generated, meetings skipped".
type TickSummary struct {
	UsersChecked    int `json:"users_checked"`
	BriefsGenerated int `json:"briefs_generated"`
	MeetingsSkipped int `json:"meetings_skipped"`
}

func (ts *TickSummary) add(other TickSummary) {
	ts.UsersChecked += other.UsersChecked
	ts.BriefsGenerated += other.BriefsGenerated
	ts.MeetingsSkipped += other.MeetingsSkipped
}

// RunHourlyBriefs is the manual-trigger equivalent of the in-process
// hourly sweep, matching `POST /cron/generate-hourly-briefs` (spec.md
// §6): for every user, brief any meeting 60-90 minutes out that doesn't
// already have one.
func (s *Scheduler) RunHourlyBriefs(ctx context.Context) (TickSummary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return TickSummary{}, fmt.Errorf("list users: %w", err)
	}
	var total TickSummary
	now := time.Now()
	for _, u := range users {
		total.UsersChecked++
		total.add(s.hourlySweep(ctx, u, now))
	}
	return total, nil
}

// RunMidnightBriefs is the manual-trigger equivalent of the midnight
// pre-warm batch, matching `POST /cron/generate-midnight-briefs`.
func (s *Scheduler) RunMidnightBriefs(ctx context.Context) (TickSummary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return TickSummary{}, fmt.Errorf("list users: %w", err)
	}
	var total TickSummary
	now := time.Now()
	for _, u := range users {
		total.UsersChecked++
		total.add(s.midnightBatch(ctx, u, now))
	}
	return total, nil
}

// RunDailyBriefs is the manual-trigger equivalent of the 9am daily
// summary dispatch, matching `POST /cron/generate-daily-briefs`. It
// generates no briefs itself (BriefsGenerated is always 0) — it only
// counts users and meetings for the push summary.
func (s *Scheduler) RunDailyBriefs(ctx context.Context) (TickSummary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return TickSummary{}, fmt.Errorf("list users: %w", err)
	}
	var total TickSummary
	now := time.Now()
	for _, u := range users {
		total.UsersChecked++
		total.add(s.dailySummary(ctx, u, now))
	}
	return total, nil
}

func (s *Scheduler) hourlyTick(ctx context.Context, now time.Time) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		slog.Error("scheduler: list users failed", "error", err)
		return
	}
	for _, u := range users {
		s.runUserHourly(ctx, u, now)
	}
}

func (s *Scheduler) runUserHourly(ctx context.Context, u *model.User, now time.Time) {
	loc, err := time.LoadLocation(u.IANATimezone())
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	if local.Hour() == s.cfg.MidnightHour {
		s.midnightBatch(ctx, u, now)
	}
	if local.Hour() == s.cfg.MorningHour {
		s.dailySummary(ctx, u, now)
	}
	s.hourlySweep(ctx, u, now)
}

// midnightBatch pre-warms briefs for tomorrow's meetings that have human
// attendees and a specific (non-midnight) start time. Decision recorded
// in DESIGN.md: the hourly 60-90-minute sweep below is the authoritative
// generator (it runs close enough to the meeting that harvested context
// is fresh); this batch is a best-effort pre-warm that shares the same
// UpsertBrief/GetBrief idempotence check, so a meeting it warms is simply
// skipped, not regenerated, when the hourly sweep reaches it later.
func (s *Scheduler) midnightBatch(ctx context.Context, u *model.User, now time.Time) TickSummary {
	var summary TickSummary
	bucketKey := now.Format("2006-01-02")
	done, err := s.store.BucketDone(ctx, "midnight_batch", bucketKey, u.ID)
	if err != nil {
		slog.Error("scheduler: bucket check failed", "task", "midnight_batch", "user_id", u.ID, "error", err)
		return summary
	}
	if done {
		return summary
	}

	meetings, accounts, err := s.upcomingMeetings(ctx, u, now, now.Add(24*time.Hour))
	if err != nil {
		slog.Warn("scheduler: midnight batch skipped", "user_id", u.ID, "error", err)
		return summary
	}
	for i := range meetings {
		m := meetings[i]
		if len(model.HumanAttendees(m.Attendees)) == 0 {
			continue
		}
		if m.Start.Hour() == 0 && m.Start.Minute() == 0 {
			continue // no specific start time, e.g. an all-day entry
		}
		if s.ensureBrief(ctx, u, accounts, &m) {
			summary.BriefsGenerated++
		} else {
			summary.MeetingsSkipped++
		}
	}

	if err := s.store.MarkBucketDone(ctx, "midnight_batch", bucketKey, u.ID); err != nil {
		slog.Error("scheduler: mark bucket done failed", "task", "midnight_batch", "user_id", u.ID, "error", err)
	}
	return summary
}

// dailySummary counts the day's meetings and dispatches one push
// notification (spec.md §4.11); it writes no chat-log entry.
func (s *Scheduler) dailySummary(ctx context.Context, u *model.User, now time.Time) TickSummary {
	var summary TickSummary
	bucketKey := now.Format("2006-01-02")
	done, err := s.store.BucketDone(ctx, "daily_summary", bucketKey, u.ID)
	if err != nil {
		slog.Error("scheduler: bucket check failed", "task", "daily_summary", "user_id", u.ID, "error", err)
		return summary
	}
	if done {
		return summary
	}

	meetings, _, err := s.upcomingMeetings(ctx, u, now, now.Add(24*time.Hour))
	if err != nil {
		slog.Warn("scheduler: daily summary skipped", "user_id", u.ID, "error", err)
		return summary
	}
	s.push.NotifyDailySummary(ctx, u.ID, len(meetings))

	if err := s.store.MarkBucketDone(ctx, "daily_summary", bucketKey, u.ID); err != nil {
		slog.Error("scheduler: mark bucket done failed", "task", "daily_summary", "user_id", u.ID, "error", err)
	}
	return summary
}

// hourlySweep generates briefs for meetings starting 60-90 minutes out
// that don't already have one.
func (s *Scheduler) hourlySweep(ctx context.Context, u *model.User, now time.Time) TickSummary {
	var summary TickSummary
	meetings, accounts, err := s.upcomingMeetings(ctx, u, now.Add(60*time.Minute), now.Add(90*time.Minute))
	if err != nil {
		slog.Warn("scheduler: hourly sweep skipped", "user_id", u.ID, "error", err)
		return summary
	}
	for i := range meetings {
		m := meetings[i]
		if s.ensureBrief(ctx, u, accounts, &m) {
			summary.BriefsGenerated++
		} else {
			summary.MeetingsSkipped++
		}
	}
	return summary
}

// ensureBrief runs the full PrepCoordinator pipeline for m unless a
// brief already exists, the idempotence check backing Scenario E
// (spec.md §8: a repeated hourly sweep reports zero new briefs for a
// meeting already prepped). It reports whether a brief was generated.
func (s *Scheduler) ensureBrief(ctx context.Context, u *model.User, accounts []*model.Account, m *model.Meeting) bool {
	existing, err := s.store.GetBrief(ctx, u.ID, m.ID)
	if err != nil {
		slog.Error("scheduler: get brief failed", "user_id", u.ID, "meeting_id", m.ID, "error", err)
		return false
	}
	if existing != nil {
		return false
	}

	generated := false
	ch := s.coordinator.Run(ctx, m, accounts, u)
	for ev := range ch {
		if ev.Type == model.StreamEventComplete && ev.Brief != nil {
			if err := s.store.UpsertBrief(ctx, ev.Brief); err != nil {
				slog.Error("scheduler: upsert brief failed", "user_id", u.ID, "meeting_id", m.ID, "error", err)
				continue
			}
			generated = true
		}
	}
	return generated
}

func (s *Scheduler) minuteTick(ctx context.Context, now time.Time) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		slog.Error("scheduler: list users failed", "error", err)
		return
	}
	for _, u := range users {
		s.reminderSweep(ctx, u, now)
	}
}

// reminderSweep dispatches a "starting soon" push for meetings entering
// the ReminderLeadTime lookahead window, deduped per (user, meeting, day)
// so the per-minute sweep's one-minute window never double-sends.
func (s *Scheduler) reminderSweep(ctx context.Context, u *model.User, now time.Time) {
	windowStart := now.Add(s.cfg.ReminderLeadTime)
	windowEnd := windowStart.Add(time.Minute)
	meetings, _, err := s.upcomingMeetings(ctx, u, windowStart, windowEnd)
	if err != nil {
		slog.Warn("scheduler: reminder sweep skipped", "user_id", u.ID, "error", err)
		return
	}

	day := now.Truncate(24 * time.Hour)
	for _, m := range meetings {
		sent, err := s.store.ReminderSent(ctx, u.ID, m.ID, day)
		if err != nil {
			slog.Error("scheduler: reminder dedup check failed", "user_id", u.ID, "meeting_id", m.ID, "error", err)
			continue
		}
		if sent {
			continue
		}
		s.push.NotifyReminder(ctx, u.ID, m.ID, m.Title)
		if err := s.store.MarkReminderSent(ctx, u.ID, m.ID, day); err != nil {
			slog.Error("scheduler: mark reminder sent failed", "user_id", u.ID, "meeting_id", m.ID, "error", err)
		}
	}
}

// upcomingMeetings lists every meeting starting in [after, before) across
// a user's valid accounts, deduped by provider event ID. It returns the
// account list alongside so callers can hand it straight to
// coordinator.Run without a second TokenGuard pass.
func (s *Scheduler) upcomingMeetings(ctx context.Context, u *model.User, after, before time.Time) ([]model.Meeting, []*model.Account, error) {
	accounts, err := s.store.ListAccountsForUser(ctx, u.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, nil, nil
	}

	result := s.guard.EnsureAllValid(ctx, accounts)
	if len(result.Valid) == 0 {
		return nil, nil, fmt.Errorf("no valid accounts")
	}

	seen := make(map[string]bool)
	var meetings []model.Meeting
	for _, acc := range result.Valid {
		client, ok := s.clients[acc.Provider]
		if !ok {
			continue
		}
		events, err := client.ListEvents(ctx, acc.AccessToken, providerclients.ListOptions{
			Window:     providerclients.TimeWindow{After: after, Before: before},
			MaxResults: maxUpcomingMeetings,
		})
		if err != nil {
			slog.Warn("scheduler: list events failed", "account_id", acc.ID, "error", err)
			continue
		}
		for _, e := range events {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			meetings = append(meetings, toMeeting(e))
		}
	}
	return meetings, result.Valid, nil
}

func toMeeting(e providerclients.Event) model.Meeting {
	attendees := make([]model.Attendee, len(e.Attendees))
	for i, a := range e.Attendees {
		attendees[i] = model.Attendee{Email: a.Email, DisplayName: a.DisplayName}
	}
	return model.Meeting{
		ID:        e.ID,
		Title:     e.Title,
		Start:     e.Start,
		End:       e.End,
		Attendees: attendees,
	}
}
