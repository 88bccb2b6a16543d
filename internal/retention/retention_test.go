package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/store"
)

func TestSweep_PurgesOldBriefButKeepsRecentOne(t *testing.T) {
	fs := store.NewFakeStore()
	ctx := context.Background()

	old := &model.Brief{UserID: "u1", MeetingID: "old", GeneratedAt: time.Now().Add(-60 * 24 * time.Hour)}
	recent := &model.Brief{UserID: "u1", MeetingID: "new", GeneratedAt: time.Now()}
	require.NoError(t, fs.UpsertBrief(ctx, old))
	require.NoError(t, fs.UpsertBrief(ctx, recent))

	cfg := config.DefaultRetentionConfig()
	cfg.BriefRetention = 30 * 24 * time.Hour
	svc := New(fs, cfg)

	svc.sweep(ctx)

	gone, err := fs.GetBrief(ctx, "u1", "old")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := fs.GetBrief(ctx, "u1", "new")
	require.NoError(t, err)
	require.NotNil(t, kept)
}

func TestSweep_PurgesStaleBucketAndReminderState(t *testing.T) {
	fs := store.NewFakeStore()
	ctx := context.Background()

	require.NoError(t, fs.MarkBucketDone(ctx, "midnight_batch", "2026-06-01", "u1"))
	require.NoError(t, fs.MarkReminderSent(ctx, "u1", "m1", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))

	cfg := config.DefaultRetentionConfig()
	cfg.BucketRetention = 1 * time.Nanosecond
	svc := New(fs, cfg)

	time.Sleep(time.Millisecond)
	svc.sweep(ctx)

	done, err := fs.BucketDone(ctx, "midnight_batch", "2026-06-01", "u1")
	require.NoError(t, err)
	assert.False(t, done)

	sent, err := fs.ReminderSent(ctx, "u1", "m1", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestStartStop_DisabledIsNoOp(t *testing.T) {
	fs := store.NewFakeStore()
	cfg := config.DefaultRetentionConfig()
	cfg.Enabled = false
	svc := New(fs, cfg)

	svc.Start(context.Background())
	svc.Stop() // must not block or panic when Start never launched a loop
}
