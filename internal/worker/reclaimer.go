package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/workflowlens/runner-api/internal/store"
)

// Reclaimer periodically returns jobs stuck in processing to the
// pending pool. It runs on its own schedule, decoupled from any single
// worker, and holds no state between sweeps: all the information it
// needs lives in the jobs table.
type Reclaimer struct {
	store    store.JobStore
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewReclaimer creates a Reclaimer that sweeps every interval,
// reclaiming jobs that have sat in processing longer than timeout.
func NewReclaimer(
	jobStore store.JobStore,
	interval, timeout time.Duration,
	logger *slog.Logger,
) *Reclaimer {
	return &Reclaimer{
		store:    jobStore,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("component", "reclaimer"),
	}
}

// Run sweeps on the configured interval until the context is cancelled.
// Sweep failures are logged and retried on the next tick; the reclaimer
// never gives up.
func (r *Reclaimer) Run(ctx context.Context) error {
	r.logger.Info("reclaimer started",
		"interval", r.interval.String(),
		"timeout", r.timeout.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reclaimer stopping")
			return nil

		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("reclaim sweep failed", "error", err)
			}
		}
	}
}

// Sweep runs one reclaim pass and returns the number of jobs returned
// to pending. Safe to call concurrently with a running Run loop; the
// store's guarded update makes overlapping sweeps harmless.
func (r *Reclaimer) Sweep(ctx context.Context) (int64, error) {
	reclaimed, err := r.store.ReclaimStaleJobs(ctx, r.timeout)
	if err != nil {
		return 0, err
	}

	if reclaimed > 0 {
		r.logger.Info("returned stale jobs to pending",
			"count", reclaimed,
			"timeout", r.timeout.String())
	}

	return reclaimed, nil
}
