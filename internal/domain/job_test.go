package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workflowlens/runner-api/internal/domain"
)

func validPayload() json.RawMessage {
	return json.RawMessage(`{"video_url":"https://example.com/v.mp4","prompt":"analyze"}`)
}

func TestNewJob(t *testing.T) {
	t.Parallel()

	t.Run("creates_pending_job", func(t *testing.T) {
		t.Parallel()

		job, err := domain.NewJob(validPayload())
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, job.ID)
		assert.Equal(t, domain.JobStatusPending, job.Status)
		assert.Empty(t, job.WorkerID)
		assert.Nil(t, job.Result)
		assert.False(t, job.CreatedAt.IsZero())
		assert.False(t, job.UpdatedAt.IsZero())
	})

	t.Run("rejects_empty_payload", func(t *testing.T) {
		t.Parallel()

		job, err := domain.NewJob(nil)
		assert.Nil(t, job)
		assert.ErrorIs(t, err, domain.ErrEmptyJobPayload)
	})
}

func TestJob_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(j *domain.Job)
		wantErr error
	}{
		{
			name:    "valid_job",
			mutate:  func(j *domain.Job) {},
			wantErr: nil,
		},
		{
			name:    "nil_id",
			mutate:  func(j *domain.Job) { j.ID = uuid.Nil },
			wantErr: domain.ErrEmptyJobID,
		},
		{
			name:    "empty_payload",
			mutate:  func(j *domain.Job) { j.Payload = nil },
			wantErr: domain.ErrEmptyJobPayload,
		},
		{
			name:    "unknown_status",
			mutate:  func(j *domain.Job) { j.Status = "archived" },
			wantErr: domain.ErrInvalidJobStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job, err := domain.NewJob(validPayload())
			require.NoError(t, err)

			tt.mutate(job)
			err = job.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestJob_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from domain.JobStatus
		to   domain.JobStatus
		want bool
	}{
		{"pending_to_processing", domain.JobStatusPending, domain.JobStatusProcessing, true},
		{"pending_to_completed", domain.JobStatusPending, domain.JobStatusCompleted, false},
		{"pending_to_failed", domain.JobStatusPending, domain.JobStatusFailed, false},
		{"processing_to_completed", domain.JobStatusProcessing, domain.JobStatusCompleted, true},
		{"processing_to_failed", domain.JobStatusProcessing, domain.JobStatusFailed, true},
		{"processing_reclaimed_to_pending", domain.JobStatusProcessing, domain.JobStatusPending, true},
		{"completed_is_terminal", domain.JobStatusCompleted, domain.JobStatusPending, false},
		{"completed_cannot_fail", domain.JobStatusCompleted, domain.JobStatusFailed, false},
		{"failed_is_terminal", domain.JobStatusFailed, domain.JobStatusPending, false},
		{"failed_cannot_complete", domain.JobStatusFailed, domain.JobStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			job := &domain.Job{Status: tt.from}
			assert.Equal(t, tt.want, job.CanTransitionTo(tt.to))
		})
	}
}

func TestJob_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, (&domain.Job{Status: domain.JobStatusPending}).IsTerminal())
	assert.False(t, (&domain.Job{Status: domain.JobStatusProcessing}).IsTerminal())
	assert.True(t, (&domain.Job{Status: domain.JobStatusCompleted}).IsTerminal())
	assert.True(t, (&domain.Job{Status: domain.JobStatusFailed}).IsTerminal())
}
