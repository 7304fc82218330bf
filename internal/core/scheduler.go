package core

// scheduler.go runs the batch history retention job.
//
// The job deletes persisted batches older than the retention window. It runs
// once on start and then every Interval until ctx is cancelled. A failed run
// is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// Purge defaults used when PurgeConfig fields are zero.
const (
	DefaultHistoryRetention = 30 * 24 * time.Hour
	DefaultPurgeInterval    = 24 * time.Hour
)

// StartHistoryPurge blocks, purging old history until ctx is cancelled.
// It returns immediately when no history store is configured.
func (s *Service) StartHistoryPurge(ctx context.Context, cfg PurgeConfig) {
	if s.history == nil {
		return
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultHistoryRetention
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPurgeInterval
	}

	slog.Info("history purge scheduler started",
		"retention", cfg.Retention.String(),
		"interval", cfg.Interval.String(),
	)

	s.runPurge(ctx, cfg.Retention)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history purge scheduler stopped")
			return
		case <-ticker.C:
			s.runPurge(ctx, cfg.Retention)
		}
	}
}

// runPurge performs one purge cycle and returns the number of batches removed.
func (s *Service) runPurge(ctx context.Context, retention time.Duration) int64 {
	start := time.Now()
	cutoff := s.now().Add(-retention)

	purged, err := s.history.PurgeBefore(ctx, cutoff)
	if err != nil {
		slog.Error("history purge failed", "error", err)
		return 0
	}

	slog.Info("history purge completed",
		"batches_purged", purged,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
