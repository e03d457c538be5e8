package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/workflowlens/runner-api/internal/domain"
	"github.com/workflowlens/runner-api/internal/platform/logger"
	"github.com/workflowlens/runner-api/internal/store"
)

// jobColumns is the column list shared by every query that scans a full
// job row. Keep in sync with scanJob.
const jobColumns = `id, payload, status, worker_id, result, error_message,
	reset_reason, reset_count, started_at, completed_at, failed_at,
	created_at, updated_at`

// PostgresJobStore implements the store.JobStore interface using PostgreSQL.
//
// All coordination between workers happens through this store: the claim
// relies on FOR UPDATE SKIP LOCKED so concurrent claimants each lock a
// different oldest-available row instead of queueing behind one another,
// and every status transition is a conditional UPDATE guarded by the
// expected current status.
type PostgresJobStore struct {
	db store.DBTX
}

// NewPostgresJobStore creates a new PostgresJobStore.
func NewPostgresJobStore(db store.DBTX) *PostgresJobStore {
	return &PostgresJobStore{
		db: db,
	}
}

// WithTx returns a new JobStore instance that uses the provided transaction.
func (s *PostgresJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &PostgresJobStore{
		db: tx,
	}
}

// CreateJob persists a new job in the pending state. Inserting an ID
// that already exists returns store.ErrConflict.
func (s *PostgresJobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	log := logger.FromContext(ctx)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO jobs (id, payload, status, reset_count, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5)
	`

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		[]byte(job.Payload),
		job.Status,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create job",
			"job_id", job.ID,
			"error", err)
		if IsUniqueViolation(err) {
			return store.NewStoreError("job", "create", "job already exists", store.ErrConflict)
		}
		return store.NewStoreError("job", "create", "insert failed", MapError(err))
	}

	return nil
}

// GetJob retrieves a job by its ID.
func (s *PostgresJobStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrJobNotFound, id)
		}
		return nil, MapError(fmt.Errorf("failed to get job: %w", err))
	}

	return job, nil
}

// ClaimNextJob atomically hands the oldest pending job to the caller.
//
// The selection and the transition are a single statement: the inner
// SELECT locks one candidate row with SKIP LOCKED, so a row being
// claimed in another transaction is invisible here and the next-oldest
// candidate is taken instead. Two concurrent claims can therefore never
// return the same job, and neither ever waits on the other's row lock.
func (s *PostgresJobStore) ClaimNextJob(
	ctx context.Context,
	workerID string,
) (*domain.Job, error) {
	log := logger.FromContext(ctx)

	if workerID == "" {
		return nil, fmt.Errorf("%w: worker ID cannot be empty", store.ErrInvalidEntity)
	}

	query := `
		UPDATE jobs
		SET status = $1, worker_id = $2, started_at = $3, updated_at = $3
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = $4
			ORDER BY created_at ASC, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	now := time.Now().UTC()

	row := s.db.QueryRowContext(ctx, query,
		domain.JobStatusProcessing,
		workerID,
		now,
		domain.JobStatusPending,
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Empty queue, the expected steady state. Not an error for
			// the caller to act on beyond waiting out its poll interval.
			return nil, store.ErrNoPendingJobs
		}
		log.Error("failed to claim next job",
			"worker_id", workerID,
			"error", err)
		return nil, store.NewStoreError("job", "claim", "claim query failed", MapError(err))
	}

	return job, nil
}

// UpdateJobStatus transitions a job between statuses with a conditional
// write. The WHERE clause carries the full precondition (current status
// and, for terminal writes from workers, current owner); zero rows
// affected means the precondition no longer held and nothing changed.
func (s *PostgresJobStore) UpdateJobStatus(
	ctx context.Context,
	id uuid.UUID,
	expected, next domain.JobStatus,
	update store.JobStatusUpdate,
) error {
	log := logger.FromContext(ctx)

	if !domain.IsValidJobStatus(expected) || !domain.IsValidJobStatus(next) {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrInvalidJobStatus)
	}

	now := time.Now().UTC()

	var query string
	args := []any{next, now, id, expected}

	switch next {
	case domain.JobStatusCompleted:
		query = `
			UPDATE jobs
			SET status = $1, updated_at = $2, worker_id = NULL,
				result = $5, completed_at = $2
			WHERE id = $3 AND status = $4
		`
		args = append(args, []byte(update.Result))
	case domain.JobStatusFailed:
		query = `
			UPDATE jobs
			SET status = $1, updated_at = $2, worker_id = NULL,
				error_message = $5, failed_at = $2
			WHERE id = $3 AND status = $4
		`
		args = append(args, update.ErrorMessage)
	case domain.JobStatusPending:
		query = `
			UPDATE jobs
			SET status = $1, updated_at = $2, worker_id = NULL,
				started_at = NULL
			WHERE id = $3 AND status = $4
		`
	default:
		// Transitions into processing go through ClaimNextJob only.
		return fmt.Errorf(
			"%w: cannot update into status %q",
			store.ErrInvalidEntity,
			next,
		)
	}

	if update.ExpectedWorkerID != "" {
		query += ` AND worker_id = $` + fmt.Sprint(len(args)+1)
		args = append(args, update.ExpectedWorkerID)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update job status",
			"job_id", id,
			"expected_status", expected,
			"next_status", next,
			"error", err)
		return store.NewStoreError("job", "update", "conditional update failed", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(fmt.Errorf("failed to get rows affected: %w", err))
	}

	if rowsAffected == 0 {
		// The precondition did not hold. Re-read to tell a missing job
		// apart from one whose status or owner moved underneath us.
		current, getErr := s.GetJob(ctx, id)
		if getErr != nil {
			if store.IsNotFoundError(getErr) {
				return fmt.Errorf("%w: %s", store.ErrJobNotFound, id)
			}
			return MapError(getErr)
		}
		return fmt.Errorf(
			"%w: job %s is %q (expected %q)",
			store.ErrConflict,
			id,
			current.Status,
			expected,
		)
	}

	return nil
}

// ReclaimStaleJobs returns abandoned processing jobs to the pending pool.
//
// The reclaim is a single guarded UPDATE: a job that legitimately left
// processing between any earlier read and this write simply fails the
// WHERE clause and is left untouched, which makes the sweep idempotent
// and safe to run concurrently with claims and terminal writes.
func (s *PostgresJobStore) ReclaimStaleJobs(
	ctx context.Context,
	olderThan time.Duration,
) (int64, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE jobs
		SET status = $1, worker_id = NULL, started_at = NULL,
			reset_reason = 'timeout', reset_count = reset_count + 1,
			updated_at = $2
		WHERE status = $3 AND updated_at < $4
	`

	now := time.Now().UTC()
	cutoff := now.Add(-olderThan)

	result, err := s.db.ExecContext(ctx, query,
		domain.JobStatusPending,
		now,
		domain.JobStatusProcessing,
		cutoff,
	)
	if err != nil {
		log.Error("failed to reclaim stale jobs",
			"older_than", olderThan,
			"error", err)
		return 0, store.NewStoreError("job", "reclaim", "sweep update failed", MapError(err))
	}

	reclaimed, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(fmt.Errorf("failed to get rows affected: %w", err))
	}

	if reclaimed > 0 {
		log.Info("reclaimed stale jobs",
			"count", reclaimed,
			"older_than", olderThan)
	}

	return reclaimed, nil
}

// ListJobsByStatus retrieves jobs with the given status, oldest first,
// optionally filtered to those whose updated_at is older than olderThan.
func (s *PostgresJobStore) ListJobsByStatus(
	ctx context.Context,
	status domain.JobStatus,
	olderThan time.Duration,
) ([]*domain.Job, error) {
	log := logger.FromContext(ctx)

	var query string
	var args []any

	if olderThan > 0 {
		query = `
			SELECT ` + jobColumns + `
			FROM jobs
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC, id ASC
		`
		args = []any{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT ` + jobColumns + `
			FROM jobs
			WHERE status = $1
			ORDER BY created_at ASC, id ASC
		`
		args = []any{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs by status",
			"status", status,
			"error", err)
		return nil, store.NewStoreError("job", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, MapError(fmt.Errorf("failed to scan job row: %w", err))
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(fmt.Errorf("error iterating job rows: %w", err))
	}

	return jobs, nil
}

// rowScanner abstracts over *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob reads one full job row in jobColumns order.
func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job          domain.Job
		payload      []byte
		workerID     sql.NullString
		result       []byte
		errorMessage sql.NullString
		resetReason  sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
		failedAt     sql.NullTime
	)

	err := row.Scan(
		&job.ID,
		&payload,
		&job.Status,
		&workerID,
		&result,
		&errorMessage,
		&resetReason,
		&job.ResetCount,
		&startedAt,
		&completedAt,
		&failedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Payload = payload
	job.Result = result
	job.WorkerID = workerID.String
	job.ErrorMessage = errorMessage.String
	job.ResetReason = resetReason.String
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if failedAt.Valid {
		t := failedAt.Time
		job.FailedAt = &t
	}

	return &job, nil
}
