package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of an analysis job
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents one unit of analysis work moving through the queue.
// Ownership is recorded as data (WorkerID + Status), never as a held
// lock: a worker that crashes leaves the row in processing until the
// stale-claim sweep returns it to pending.
type Job struct {
	ID           uuid.UUID       `json:"id"`
	Payload      json.RawMessage `json:"payload"`
	Status       JobStatus       `json:"status"`
	WorkerID     string          `json:"worker_id,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ResetReason  string          `json:"reset_reason,omitempty"`
	ResetCount   int             `json:"reset_count"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	FailedAt     *time.Time      `json:"failed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewJob creates a new Job with the given payload.
// It generates a new UUID for the job ID, sets the status to pending,
// and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewJob(payload json.RawMessage) (*Job, error) {
	job := &Job{
		ID:        uuid.New(),
		Payload:   payload,
		Status:    JobStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
// Returns an error if any field fails validation.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if len(j.Payload) == 0 {
		return ErrEmptyJobPayload
	}

	if !IsValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	return nil
}

// IsTerminal reports whether the job has reached a final status.
// Terminal jobs never move again; there is no edge out of completed
// or failed.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// CanTransitionTo reports whether moving from the job's current status
// to the given status is a legal lifecycle edge. The only backward
// edge is processing -> pending, used by the stale-claim sweep.
func (j *Job) CanTransitionTo(status JobStatus) bool {
	switch j.Status {
	case JobStatusPending:
		return status == JobStatusProcessing
	case JobStatusProcessing:
		return status == JobStatusCompleted ||
			status == JobStatusFailed ||
			status == JobStatusPending
	default:
		// completed and failed are terminal
		return false
	}
}

// IsValidJobStatus checks if the given status is a valid JobStatus.
func IsValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}
