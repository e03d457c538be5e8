package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/workflowlens/runner-api/internal/domain"
)

// JobStatusUpdate carries the optional fields written alongside a
// conditional status transition.
type JobStatusUpdate struct {
	// ExpectedWorkerID, when non-empty, adds an ownership precondition to
	// the write: the row's worker_id must still equal it. Terminal writes
	// from workers set this so that a reclaimed-and-reclaimed job cannot
	// be overwritten by the original, slower claimant.
	ExpectedWorkerID string

	// Result is stored when transitioning to completed.
	Result json.RawMessage

	// ErrorMessage is stored when transitioning to failed.
	ErrorMessage string
}

// JobStore defines the interface for persisting and coordinating jobs.
// All cross-worker coordination is expressed through the conditional
// semantics of ClaimNextJob, UpdateJobStatus, and ReclaimStaleJobs;
// there are no external locks.
type JobStore interface {
	// CreateJob persists a new job in the pending state.
	CreateJob(ctx context.Context, job *domain.Job) error

	// GetJob retrieves a job by its ID.
	// Returns ErrJobNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// ClaimNextJob atomically selects the oldest pending job, marks it
	// processing and owned by workerID, and returns it. Two concurrent
	// claimants never receive the same job. Returns ErrNoPendingJobs
	// when the queue is empty and ErrStoreUnavailable when the store
	// cannot be reached.
	ClaimNextJob(ctx context.Context, workerID string) (*domain.Job, error)

	// UpdateJobStatus transitions a job from expected to next, applying
	// the fields in update. The write succeeds only if the job's status
	// equals expected (and, when set, its owner equals
	// update.ExpectedWorkerID) at the moment of the write; otherwise it
	// returns ErrConflict and changes nothing.
	UpdateJobStatus(
		ctx context.Context,
		id uuid.UUID,
		expected, next domain.JobStatus,
		update JobStatusUpdate,
	) error

	// ReclaimStaleJobs returns every job stuck in processing for longer
	// than olderThan back to pending, clearing ownership and annotating
	// the reset. It reports the number of jobs reclaimed. Safe to run
	// concurrently with itself and with active claims.
	ReclaimStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error)

	// ListJobsByStatus retrieves jobs in the given status, oldest first.
	// If olderThan is non-zero, only jobs whose updated_at is older than
	// the given duration are returned.
	ListJobsByStatus(
		ctx context.Context,
		status domain.JobStatus,
		olderThan time.Duration,
	) ([]*domain.Job, error)

	// WithTx returns a new JobStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) JobStore
}
