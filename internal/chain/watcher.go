package chain

import (
	"context"
	"log/slog"
	"time"

	"fundsync/internal/metrics"
	"fundsync/internal/retry"
)

// Runner is the reconciliation entry point the watcher drives: invoked once
// per new checkpoint, taking no input beyond "a new checkpoint exists".
type Runner interface {
	Run(ctx context.Context) error
}

// Watcher polls the ledger tip and triggers a reconciliation run whenever a
// new checkpoint appears. A failed run is not retried in place; the next
// checkpoint re-attempts the same idempotent work.
type Watcher struct {
	source   TipSource
	cache    *CachedTip
	runner   Runner
	interval time.Duration
	retry    retry.Strategy
}

// NewWatcher creates a Watcher polling source every interval.
func NewWatcher(source TipSource, cache *CachedTip, runner Runner, interval time.Duration, strategy retry.Strategy) *Watcher {
	return &Watcher{
		source:   source,
		cache:    cache,
		runner:   runner,
		interval: interval,
		retry:    strategy,
	}
}

// Start blocks, polling for new checkpoints until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	slog.Info("Starting checkpoint watcher", "poll_interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Warn("Context cancelled, stopping checkpoint watcher")
			return ctx.Err()
		case <-ticker.C:
		}

		var tip uint64
		err := w.retry.Execute(ctx, func() error {
			var err error
			tip, err = w.source.CurrentCheckpoint(ctx)
			return err
		})
		if err != nil {
			slog.Error("Failed to get checkpoint tip", "error", err)
			continue
		}

		last := w.cache.Current()
		if tip <= last {
			continue
		}

		w.cache.Set(tip)
		metrics.CurrentCheckpoint.Set(float64(tip))
		slog.Debug("New checkpoint observed", "tip", tip, "previous", last)

		if err := w.runner.Run(ctx); err != nil {
			// Surfaced, not fatal to the watcher: the run retries wholesale
			// on the next checkpoint.
			slog.Error("Reconciliation run failed", "checkpoint", tip, "error", err)
		}
	}
}
