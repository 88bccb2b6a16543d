// Package store is the narrow persistence surface the specification
// treats as an external collaborator: brief upsert-by-key, account token
// mutation, and the scheduler's per-tick idempotence bookkeeping. It is
// deliberately not a general-purpose ORM layer — see DESIGN.md for why
// entgo.io/ent (the teacher's own persistence layer) was dropped in favor
// of a direct pgx-backed KV/JSON-column store.
package store

import (
	"context"
	"time"

	"github.com/codeready-toolchain/prepd/internal/model"
)

// Store is the full persistence surface the pipeline and scheduler depend
// on. A single Postgres-backed implementation lives in pg.go; tests use an
// in-memory fake (fake.go) so pipeline unit tests never need a database.
type Store interface {
	// Accounts
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	ListAccountsForUser(ctx context.Context, userID string) ([]*model.Account, error)
	UpdateAccountToken(ctx context.Context, accountID, accessToken string, expiresAt time.Time) error
	MarkAccountRevoked(ctx context.Context, accountID string, reason string) error

	// Users — the scheduler iterates every user on each cron tick.
	ListUsers(ctx context.Context) ([]*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)

	// Briefs
	UpsertBrief(ctx context.Context, brief *model.Brief) error
	GetBrief(ctx context.Context, userID, meetingID string) (*model.Brief, error)

	// Scheduler idempotence buckets: one row per (task, bucket key, user).
	// BucketDone reports whether this tick's unit of work already ran;
	// MarkBucketDone records that it has, so a retry or an overlapping
	// invocation doesn't repeat it.
	BucketDone(ctx context.Context, task, bucketKey, userID string) (bool, error)
	MarkBucketDone(ctx context.Context, task, bucketKey, userID string) error

	// ReminderSent / MarkReminderSent dedup meeting-start reminders per
	// (user, meeting, day) so the per-minute sweep's overlap window
	// doesn't double-send.
	ReminderSent(ctx context.Context, userID, meetingID string, day time.Time) (bool, error)
	MarkReminderSent(ctx context.Context, userID, meetingID string, day time.Time) error

	// PurgeOldBriefs deletes briefs generated before cutoff, returning how
	// many rows were removed. Used by internal/retention's sweep.
	PurgeOldBriefs(ctx context.Context, cutoff time.Time) (int, error)

	// PurgeStaleBucketState deletes scheduler_buckets and reminders_sent
	// rows recorded before cutoff — both are write-once dedup markers with
	// no value once their originating meeting is long past.
	PurgeStaleBucketState(ctx context.Context, cutoff time.Time) (int, error)

	Close() error
}
