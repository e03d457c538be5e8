package worker

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/workflowlens/runner-api/internal/domain"
	"github.com/workflowlens/runner-api/internal/store"
)

// fakeJobStore is an in-memory store.JobStore with the same conditional
// semantics as the Postgres implementation, for exercising the worker
// and reclaimer without a database.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job

	// claimErr, when non-nil, is returned by every ClaimNextJob call.
	claimErr error

	// claimCalls counts ClaimNextJob invocations.
	claimCalls int

	// reclaimErr, when non-nil, is returned by every ReclaimStaleJobs call.
	reclaimErr error

	// reclaimCalls counts ReclaimStaleJobs invocations.
	reclaimCalls int
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[uuid.UUID]*domain.Job)}
}

func (f *fakeJobStore) CreateJob(_ context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobStore) GetJob(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrJobNotFound, id)
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobStore) ClaimNextJob(_ context.Context, workerID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.claimCalls++
	if f.claimErr != nil {
		return nil, f.claimErr
	}

	var pending []*domain.Job
	for _, job := range f.jobs {
		if job.Status == domain.JobStatusPending {
			pending = append(pending, job)
		}
	}
	if len(pending) == 0 {
		return nil, store.ErrNoPendingJobs
	}

	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID.String() < pending[j].ID.String()
	})

	job := pending[0]
	now := time.Now().UTC()
	job.Status = domain.JobStatusProcessing
	job.WorkerID = workerID
	job.StartedAt = &now
	job.UpdatedAt = now

	cp := *job
	return &cp, nil
}

func (f *fakeJobStore) UpdateJobStatus(
	_ context.Context,
	id uuid.UUID,
	expected, next domain.JobStatus,
	update store.JobStatusUpdate,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrJobNotFound, id)
	}

	if job.Status != expected ||
		(update.ExpectedWorkerID != "" && job.WorkerID != update.ExpectedWorkerID) {
		return fmt.Errorf(
			"%w: job %s is %q (expected %q)",
			store.ErrConflict, id, job.Status, expected,
		)
	}

	now := time.Now().UTC()
	job.Status = next
	job.UpdatedAt = now

	switch next {
	case domain.JobStatusCompleted:
		job.WorkerID = ""
		job.Result = update.Result
		job.CompletedAt = &now
	case domain.JobStatusFailed:
		job.WorkerID = ""
		job.ErrorMessage = update.ErrorMessage
		job.FailedAt = &now
	case domain.JobStatusPending:
		job.WorkerID = ""
		job.StartedAt = nil
	}

	return nil
}

func (f *fakeJobStore) ReclaimStaleJobs(_ context.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reclaimCalls++
	if f.reclaimErr != nil {
		return 0, f.reclaimErr
	}

	cutoff := time.Now().UTC().Add(-olderThan)
	var reclaimed int64
	for _, job := range f.jobs {
		if job.Status == domain.JobStatusProcessing && job.UpdatedAt.Before(cutoff) {
			job.Status = domain.JobStatusPending
			job.WorkerID = ""
			job.StartedAt = nil
			job.ResetReason = "timeout"
			job.ResetCount++
			job.UpdatedAt = time.Now().UTC()
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (f *fakeJobStore) ListJobsByStatus(
	_ context.Context,
	status domain.JobStatus,
	olderThan time.Duration,
) ([]*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var jobs []*domain.Job
	for _, job := range f.jobs {
		if job.Status != status {
			continue
		}
		if olderThan > 0 && !job.UpdatedAt.Before(cutoff) {
			continue
		}
		cp := *job
		jobs = append(jobs, &cp)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func (f *fakeJobStore) WithTx(*sql.Tx) store.JobStore {
	return f
}

// setJob overwrites a job's stored state directly, bypassing all
// conditional checks. Test setup only.
func (f *fakeJobStore) setJob(job *domain.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *job
	f.jobs[job.ID] = &cp
}
