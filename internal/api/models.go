package api

import (
	"encoding/json"
	"time"

	"github.com/workflowlens/runner-api/internal/domain"
)

// CreateJobRequest defines the payload for the job insert endpoint.
type CreateJobRequest struct {
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// ClaimJobRequest defines the payload for the claim endpoint.
type ClaimJobRequest struct {
	WorkerID string `json:"worker_id" validate:"required,min=1,max=255"`
}

// CompleteJobRequest defines the payload for the completion endpoint.
// WorkerID must match the claim holder or the report is rejected.
type CompleteJobRequest struct {
	WorkerID string          `json:"worker_id" validate:"required,min=1,max=255"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// FailJobRequest defines the payload for the failure endpoint.
type FailJobRequest struct {
	WorkerID string `json:"worker_id" validate:"required,min=1,max=255"`
	Error    string `json:"error" validate:"required"`
}

// ReclaimRequest optionally overrides the configured claim timeout for
// one manual sweep.
type ReclaimRequest struct {
	TimeoutSeconds int `json:"timeout_seconds" validate:"omitempty,gt=0"`
}

// ReclaimResponse reports the outcome of a reclaim sweep.
type ReclaimResponse struct {
	Reclaimed int64 `json:"reclaimed"`
}

// JobResponse is the wire representation of a job.
type JobResponse struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Payload      json.RawMessage `json:"payload"`
	WorkerID     string          `json:"worker_id,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorMessage string          `json:"error,omitempty"`
	ResetCount   int             `json:"reset_count,omitempty"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	FailedAt     *time.Time      `json:"failed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func jobToResponse(job *domain.Job) JobResponse {
	return JobResponse{
		ID:           job.ID.String(),
		Status:       string(job.Status),
		Payload:      job.Payload,
		WorkerID:     job.WorkerID,
		Result:       job.Result,
		ErrorMessage: job.ErrorMessage,
		ResetCount:   job.ResetCount,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		FailedAt:     job.FailedAt,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}
