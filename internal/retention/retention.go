// Package retention runs the background data-retention sweep: old briefs
// and stale scheduler dedup bookkeeping accumulate indefinitely otherwise.
// Grounded in the teacher's pkg/cleanup.Service — same start/stop/ticker
// shape, generalized from session/event retention to brief/bucket
// retention.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/prepd/internal/config"
	"github.com/codeready-toolchain/prepd/internal/store"
)

// Service periodically enforces retention policies:
//   - deletes briefs older than BriefRetention
//   - deletes scheduler_buckets/reminders_sent rows older than
//     BucketRetention
//
// All operations are idempotent and safe to run from multiple processes.
type Service struct {
	cfg   *config.RetentionConfig
	store store.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Service backed by s.
func New(s store.Store, cfg *config.RetentionConfig) *Service {
	return &Service{store: s, cfg: cfg}
}

// Start launches the background sweep loop. A no-op if Retention is
// disabled or Start has already been called.
func (s *Service) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		slog.Info("retention: disabled, not starting")
		return
	}
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("retention service started",
		"brief_retention", s.cfg.BriefRetention,
		"bucket_retention", s.cfg.BucketRetention,
		"sweep_interval", s.cfg.SweepInterval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	s.purgeOldBriefs(ctx)
	s.purgeStaleBucketState(ctx)
}

func (s *Service) purgeOldBriefs(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.BriefRetention)
	n, err := s.store.PurgeOldBriefs(ctx, cutoff)
	if err != nil {
		slog.Error("retention: purge old briefs failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("retention: purged old briefs", "count", n)
	}
}

func (s *Service) purgeStaleBucketState(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.BucketRetention)
	n, err := s.store.PurgeStaleBucketState(ctx, cutoff)
	if err != nil {
		slog.Error("retention: purge stale bucket state failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("retention: purged stale bucket state", "count", n)
	}
}
