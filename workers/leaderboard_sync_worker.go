// workers/leaderboard_sync_worker.go
package workers

import (
	"context"
	"log/slog"
	"time"

	"spot-the-difference/cache"
	"spot-the-difference/metrics"
)

// ScoreSource lists committed scores, normally the users table.
type ScoreSource interface {
	AllScores(ctx context.Context) ([]cache.ScoreEntry, error)
}

// ScoreSink replaces the mirrored leaderboard.
type ScoreSink interface {
	Replace(ctx context.Context, entries []cache.ScoreEntry) error
}

// LeaderboardSyncWorker periodically rebuilds the Redis leaderboard from the
// database so that missed mirror writes heal themselves.
type LeaderboardSyncWorker struct {
	source   ScoreSource
	sink     ScoreSink
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewLeaderboardSyncWorker(source ScoreSource, sink ScoreSink, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *LeaderboardSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &LeaderboardSyncWorker{source: source, sink: sink, interval: interval, logger: logger, metrics: m}
}

func (w *LeaderboardSyncWorker) Start(ctx context.Context) {
	w.logger.Info("🔁 Starting Leaderboard Sync Worker (users → redis)", "interval", w.interval)
	go w.run(ctx)
}

func (w *LeaderboardSyncWorker) run(ctx context.Context) {
	// Initial sync so a fresh Redis is usable right away
	if err := w.syncBatch(ctx); err != nil {
		w.logger.Warn("Initial leaderboard sync failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx); err != nil {
				w.logger.Error("Leaderboard sync failed", "error", err)
			}
		case <-ctx.Done():
			w.logger.Info("⏹️ Leaderboard Sync Worker stopped")
			return
		}
	}
}

// syncBatch copies every committed score into the mirror.
func (w *LeaderboardSyncWorker) syncBatch(ctx context.Context) error {
	entries, err := w.source.AllScores(ctx)
	if err != nil {
		w.metrics.LeaderboardSyncs.WithLabelValues("error").Inc()
		return err
	}
	if err := w.sink.Replace(ctx, entries); err != nil {
		w.metrics.LeaderboardSyncs.WithLabelValues("error").Inc()
		return err
	}
	w.metrics.LeaderboardSyncs.WithLabelValues("ok").Inc()
	w.logger.Debug("Leaderboard mirror rebuilt", "users", len(entries))
	return nil
}
