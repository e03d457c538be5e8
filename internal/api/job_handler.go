package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/workflowlens/runner-api/internal/api/shared"
	"github.com/workflowlens/runner-api/internal/domain"
	"github.com/workflowlens/runner-api/internal/platform/logger"
	"github.com/workflowlens/runner-api/internal/store"
	"github.com/workflowlens/runner-api/internal/worker"
)

// JobHandler handles job-related HTTP requests. It serves both sides
// of the queue: producers inserting work and external workers claiming
// and resolving it.
type JobHandler struct {
	jobStore store.JobStore
	notifier worker.Notifier

	// claimTimeout is how long a claim may sit in processing before an
	// operator-triggered reclaim sweep takes it back.
	claimTimeout time.Duration

	logger *slog.Logger
}

// NewJobHandler creates a JobHandler. A nil notifier disables webhook
// delivery for HTTP-reported outcomes.
func NewJobHandler(
	jobStore store.JobStore,
	notifier worker.Notifier,
	claimTimeout time.Duration,
	logger *slog.Logger,
) *JobHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for JobHandler")
	}
	if notifier == nil {
		notifier = worker.NoopNotifier{}
	}

	return &JobHandler{
		jobStore:     jobStore,
		notifier:     notifier,
		claimTimeout: claimTimeout,
		logger:       logger.With(slog.String("component", "job_handler")),
	}
}

// CreateJob handles POST /jobs requests. The new job enters the pool
// as pending and is picked up by the next free worker.
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Debug("invalid create job request", slog.String("error", err.Error()))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	job, err := domain.NewJob(req.Payload)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.jobStore.CreateJob(r.Context(), job); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to create job", err)
		return
	}

	log.Info("job created", slog.String("job_id", job.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, jobToResponse(job))
}

// GetJob handles GET /jobs/{id} requests.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobIDFromRequest(w, r)
	if !ok {
		return
	}

	job, err := h.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// ClaimJob handles POST /jobs/claim requests. It hands the oldest
// pending job to the requesting worker, or returns 204 when the pool
// is empty. Two workers claiming concurrently always receive different
// jobs.
func (h *JobHandler) ClaimJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req ClaimJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	job, err := h.jobStore.ClaimNextJob(r.Context(), req.WorkerID)
	if errors.Is(err, store.ErrNoPendingJobs) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to claim job", err)
		return
	}

	log.Info("job claimed",
		slog.String("job_id", job.ID.String()),
		slog.String("worker_id", req.WorkerID))
	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// CompleteJob handles POST /jobs/{id}/complete requests. The write is
// conditional on the job still being processing and owned by the
// reporting worker; a 409 means the claim was lost and the result was
// discarded.
func (h *JobHandler) CompleteJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobIDFromRequest(w, r)
	if !ok {
		return
	}

	var req CompleteJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	h.resolveJob(w, r, jobID, domain.JobStatusCompleted, store.JobStatusUpdate{
		ExpectedWorkerID: req.WorkerID,
		Result:           req.Result,
	})
}

// FailJob handles POST /jobs/{id}/fail requests. Same conditional
// semantics as CompleteJob.
func (h *JobHandler) FailJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobIDFromRequest(w, r)
	if !ok {
		return
	}

	var req FailJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	h.resolveJob(w, r, jobID, domain.JobStatusFailed, store.JobStatusUpdate{
		ExpectedWorkerID: req.WorkerID,
		ErrorMessage:     req.Error,
	})
}

// ReclaimJobs handles POST /admin/reclaim requests: an on-demand sweep
// returning stale processing jobs to the pending pool, same as the
// background reclaimer but operator-triggered. An optional body may
// override the configured timeout for this one sweep.
func (h *JobHandler) ReclaimJobs(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	timeout := h.claimTimeout
	if r.Body != nil && r.ContentLength != 0 {
		var req ReclaimRequest
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
		if err := shared.ValidateRequest(req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
			return
		}
		if req.TimeoutSeconds > 0 {
			timeout = time.Duration(req.TimeoutSeconds) * time.Second
		}
	}

	reclaimed, err := h.jobStore.ReclaimStaleJobs(r.Context(), timeout)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to reclaim jobs", err)
		return
	}

	log.Info("manual reclaim sweep",
		slog.Int64("reclaimed", reclaimed),
		slog.String("timeout", timeout.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, ReclaimResponse{Reclaimed: reclaimed})
}

// ListJobs handles GET /admin/jobs requests: an operator view of the
// queue filtered by status, oldest first. An optional older_than_seconds
// parameter narrows the listing to jobs that have not moved for at
// least that long, which is how an operator sizes up a reclaim sweep
// before triggering one.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	status := domain.JobStatus(r.URL.Query().Get("status"))
	if !domain.IsValidJobStatus(status) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid or missing status")
		return
	}

	var olderThan time.Duration
	if raw := r.URL.Query().Get("older_than_seconds"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid older_than_seconds")
			return
		}
		olderThan = time.Duration(seconds) * time.Second
	}

	jobs, err := h.jobStore.ListJobsByStatus(r.Context(), status, olderThan)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to list jobs", err)
		return
	}

	resp := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, jobToResponse(job))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// resolveJob performs the conditional terminal write shared by
// CompleteJob and FailJob, returns the updated job, and fires the
// completion webhook when the write landed.
func (h *JobHandler) resolveJob(
	w http.ResponseWriter,
	r *http.Request,
	jobID uuid.UUID,
	next domain.JobStatus,
	update store.JobStatusUpdate,
) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	err := h.jobStore.UpdateJobStatus(r.Context(), jobID, domain.JobStatusProcessing, next, update)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	job, err := h.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("job resolved",
		slog.String("job_id", jobID.String()),
		slog.String("status", string(next)),
		slog.String("worker_id", update.ExpectedWorkerID))

	h.notifier.Notify(r.Context(), job)
	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// jobIDFromRequest parses the {id} route parameter. On failure it
// writes a 400 and returns ok=false.
func (h *JobHandler) jobIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid job ID")
		return uuid.Nil, false
	}
	return jobID, true
}
