package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/model"
)

// newTestStore starts a disposable Postgres container and runs the
// embedded migrations against it, mirroring the teacher's
// database.newTestClient helper.
func newTestStore(t *testing.T) *PGStore {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("prepd_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	cfg := &config.StoreConfig{
		DSN:             dsn,
		MaxConns:        5,
		ConnectTimeout:  10 * time.Second,
		MigrationsTable: "schema_migrations",
	}
	s, err := NewPGStore(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestPGStore_BriefUpsertRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, email) VALUES ('u1', 'u1@example.com')`)
	require.NoError(t, err)

	brief := &model.Brief{
		UserID:      "u1",
		MeetingID:   "m1",
		Summary:     "first draft",
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.UpsertBrief(ctx, brief))

	got, err := s.GetBrief(ctx, "u1", "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first draft", got.Summary)

	brief.Summary = "updated draft"
	require.NoError(t, s.UpsertBrief(ctx, brief))

	got, err = s.GetBrief(ctx, "u1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "updated draft", got.Summary)
}

func TestPGStore_BucketIdempotence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	done, err := s.BucketDone(ctx, "midnight_brief", "2026-07-31T00", "u1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.MarkBucketDone(ctx, "midnight_brief", "2026-07-31T00", "u1"))
	require.NoError(t, s.MarkBucketDone(ctx, "midnight_brief", "2026-07-31T00", "u1")) // idempotent

	done, err = s.BucketDone(ctx, "midnight_brief", "2026-07-31T00", "u1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestPGStore_PurgeOldBriefsLeavesRecentOnes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, email) VALUES ('u1', 'u1@example.com')`)
	require.NoError(t, err)

	old := &model.Brief{UserID: "u1", MeetingID: "old", GeneratedAt: time.Now().Add(-60 * 24 * time.Hour)}
	recent := &model.Brief{UserID: "u1", MeetingID: "new", GeneratedAt: time.Now()}
	require.NoError(t, s.UpsertBrief(ctx, old))
	require.NoError(t, s.UpsertBrief(ctx, recent))

	n, err := s.PurgeOldBriefs(ctx, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gone, err := s.GetBrief(ctx, "u1", "old")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := s.GetBrief(ctx, "u1", "new")
	require.NoError(t, err)
	require.NotNil(t, kept)
}

func TestPGStore_PurgeStaleBucketStateRemovesOldRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MarkBucketDone(ctx, "midnight_brief", "2020-01-01T00", "u1"))
	require.NoError(t, s.MarkReminderSent(ctx, "u1", "m1", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))

	n, err := s.PurgeStaleBucketState(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	done, err := s.BucketDone(ctx, "midnight_brief", "2020-01-01T00", "u1")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestPGStore_AccountTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, email) VALUES ('u1', 'u1@example.com')`)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, provider, email) VALUES ('a1', 'u1', 'google', 'u1@example.com')`)
	require.NoError(t, err)

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateAccountToken(ctx, "a1", "new-token", expires))

	acc, err := s.GetAccount(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, "new-token", acc.AccessToken)
	assert.Equal(t, model.AccountStatusActive, acc.Status)

	require.NoError(t, s.MarkAccountRevoked(ctx, "a1", "invalid_grant"))
	acc, err = s.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.AccountStatusRevoked, acc.Status)
}
