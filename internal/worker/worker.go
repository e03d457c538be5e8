package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/workflowlens/runner-api/internal/domain"
	"github.com/workflowlens/runner-api/internal/store"
)

// initialBackoff is the first delay applied when the store becomes
// unreachable; it doubles per consecutive failure up to Config.MaxBackoff.
const initialBackoff = time.Second

// Config holds the tunables of a single worker loop.
type Config struct {
	// PollInterval is how long the worker waits after finding the
	// queue empty before claiming again.
	PollInterval time.Duration

	// MaxBackoff caps the exponential backoff applied while the store
	// is unavailable.
	MaxBackoff time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: 10 * time.Second,
		MaxBackoff:   time.Minute,
	}
}

// Worker drives the claim -> execute -> report cycle for one identity.
// Each Worker is single-threaded with respect to its own cycle;
// concurrency comes from running many Workers (in this process or in
// others) against the shared store.
//
// A worker that dies mid-execution performs no cleanup. That is by
// design: a crashed process cannot run its own recovery, so abandoned
// jobs are returned to the pool by the Reclaimer instead.
type Worker struct {
	id       string
	store    store.JobStore
	executor Executor
	notifier Notifier
	config   Config
	logger   *slog.Logger
}

// New creates a Worker. A nil notifier is replaced with NoopNotifier.
func New(
	id string,
	jobStore store.JobStore,
	executor Executor,
	notifier Notifier,
	config Config,
	logger *slog.Logger,
) *Worker {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultConfig().MaxBackoff
	}

	return &Worker{
		id:       id,
		store:    jobStore,
		executor: executor,
		notifier: notifier,
		config:   config,
		logger:   logger.With("worker_id", id),
	}
}

// Run executes the worker loop until the context is cancelled.
// It always returns nil on shutdown; there is no fatal error short of
// cancellation, because store unavailability is retried forever.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started",
		"poll_interval", w.config.PollInterval.String())

	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			w.logger.Info("worker stopping")
			return nil
		}

		job, err := w.store.ClaimNextJob(ctx, w.id)
		switch {
		case err == nil:
			backoff = initialBackoff
			w.processJob(ctx, job)
			// Immediately try for more work; an empty queue will tell
			// us to slow down on the next claim.
			continue

		case errors.Is(err, store.ErrNoPendingJobs):
			backoff = initialBackoff
			if !sleep(ctx, w.config.PollInterval) {
				w.logger.Info("worker stopping")
				return nil
			}

		case errors.Is(err, store.ErrStoreUnavailable):
			w.logger.Warn("store unavailable, backing off",
				"backoff", backoff.String(),
				"error", err)
			if !sleep(ctx, backoff) {
				w.logger.Info("worker stopping")
				return nil
			}
			backoff = min(backoff*2, w.config.MaxBackoff)

		case errors.Is(err, context.Canceled):
			w.logger.Info("worker stopping")
			return nil

		default:
			w.logger.Error("claim failed", "error", err)
			if !sleep(ctx, w.config.PollInterval) {
				w.logger.Info("worker stopping")
				return nil
			}
		}
	}
}

// processJob executes one claimed job and reports its terminal status.
func (w *Worker) processJob(ctx context.Context, job *domain.Job) {
	log := w.logger.With("job_id", job.ID)
	log.Info("processing job")

	started := time.Now()
	result, execErr := w.executor.Execute(ctx, job)
	elapsed := time.Since(started)

	if execErr != nil {
		log.Error("job execution failed",
			"error", execErr,
			"duration", elapsed.String())

		job.Status = domain.JobStatusFailed
		job.ErrorMessage = execErr.Error()
		w.report(ctx, job, store.JobStatusUpdate{
			ExpectedWorkerID: w.id,
			ErrorMessage:     execErr.Error(),
		})
		return
	}

	log.Info("job execution succeeded", "duration", elapsed.String())

	job.Status = domain.JobStatusCompleted
	job.Result = result
	w.report(ctx, job, store.JobStatusUpdate{
		ExpectedWorkerID: w.id,
		Result:           result,
	})
}

// report performs the conditional terminal write and, if it landed,
// fires the completion notification. A conflict means the job was
// reclaimed (and possibly re-claimed by someone else) while we were
// executing: the outcome is discarded, never forced.
func (w *Worker) report(ctx context.Context, job *domain.Job, update store.JobStatusUpdate) {
	log := w.logger.With("job_id", job.ID, "status", job.Status)

	err := w.store.UpdateJobStatus(
		ctx,
		job.ID,
		domain.JobStatusProcessing,
		job.Status,
		update,
	)
	if err != nil {
		if store.IsConflictError(err) {
			log.Warn("lost claim race, discarding outcome", "error", err)
			return
		}
		log.Error("failed to record terminal status", "error", err)
		return
	}

	w.notifier.Notify(ctx, job)
}

// sleep waits for d or until the context is cancelled.
// Returns false if the context ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
