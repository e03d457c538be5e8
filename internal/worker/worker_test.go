package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workflowlens/runner-api/internal/domain"
	"github.com/workflowlens/runner-api/internal/store"
)

// recordingNotifier captures every notified job.
type recordingNotifier struct {
	mu   sync.Mutex
	jobs []*domain.Job
}

func (n *recordingNotifier) Notify(_ context.Context, job *domain.Job) {
	n.mu.Lock()
	defer n.mu.Unlock()

	cp := *job
	n.jobs = append(n.jobs, &cp)
}

func (n *recordingNotifier) notified() []*domain.Job {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]*domain.Job(nil), n.jobs...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPendingJob(t *testing.T, fake *fakeJobStore) *domain.Job {
	t.Helper()

	job, err := domain.NewJob(json.RawMessage(`{"video_url":"https://example.com/v.mp4"}`))
	require.NoError(t, err)
	require.NoError(t, fake.CreateJob(context.Background(), job))
	return job
}

func TestWorker_ProcessJob_Success(t *testing.T) {
	t.Parallel()

	fake := newFakeJobStore()
	notif := &recordingNotifier{}
	job := newPendingJob(t, fake)

	result := json.RawMessage(`{"segments":7}`)
	executor := ExecutorFunc(func(ctx context.Context, j *domain.Job) (json.RawMessage, error) {
		assert.Equal(t, job.ID, j.ID)
		return result, nil
	})

	w := New("worker-1", fake, executor, notif, DefaultConfig(), testLogger())

	claimed, err := fake.ClaimNextJob(context.Background(), "worker-1")
	require.NoError(t, err)
	w.processJob(context.Background(), claimed)

	stored, err := fake.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, stored.Status)
	assert.Equal(t, result, stored.Result)
	assert.Empty(t, stored.WorkerID)

	notified := notif.notified()
	require.Len(t, notified, 1)
	assert.Equal(t, domain.JobStatusCompleted, notified[0].Status)
	assert.Equal(t, result, notified[0].Result)
}

func TestWorker_ProcessJob_ExecutionFailure(t *testing.T) {
	t.Parallel()

	fake := newFakeJobStore()
	notif := &recordingNotifier{}
	job := newPendingJob(t, fake)

	executor := ExecutorFunc(func(context.Context, *domain.Job) (json.RawMessage, error) {
		return nil, errors.New("ffmpeg exited with status 1")
	})

	w := New("worker-1", fake, executor, notif, DefaultConfig(), testLogger())

	claimed, err := fake.ClaimNextJob(context.Background(), "worker-1")
	require.NoError(t, err)
	w.processJob(context.Background(), claimed)

	stored, err := fake.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	assert.Equal(t, "ffmpeg exited with status 1", stored.ErrorMessage)
	assert.Empty(t, stored.WorkerID)

	notified := notif.notified()
	require.Len(t, notified, 1)
	assert.Equal(t, domain.JobStatusFailed, notified[0].Status)
}

func TestWorker_ProcessJob_LostRaceDiscardsOutcome(t *testing.T) {
	t.Parallel()

	fake := newFakeJobStore()
	notif := &recordingNotifier{}
	job := newPendingJob(t, fake)

	executor := ExecutorFunc(func(context.Context, *domain.Job) (json.RawMessage, error) {
		return json.RawMessage(`{"stale":true}`), nil
	})

	w := New("worker-1", fake, executor, notif, DefaultConfig(), testLogger())

	claimed, err := fake.ClaimNextJob(context.Background(), "worker-1")
	require.NoError(t, err)

	// While worker-1 "executes", the reclaimer resets the job and
	// worker-2 claims it.
	reclaimedJob := *claimed
	reclaimedJob.Status = domain.JobStatusProcessing
	reclaimedJob.WorkerID = "worker-2"
	fake.setJob(&reclaimedJob)

	w.processJob(context.Background(), claimed)

	// worker-2 still owns the job; worker-1's result was discarded and
	// nothing was notified.
	stored, err := fake.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, stored.Status)
	assert.Equal(t, "worker-2", stored.WorkerID)
	assert.Nil(t, stored.Result)
	assert.Empty(t, notif.notified())
}

func TestWorker_Run_DrainsQueueAndStops(t *testing.T) {
	t.Parallel()

	fake := newFakeJobStore()
	notif := &recordingNotifier{}

	const jobCount = 3
	for i := 0; i < jobCount; i++ {
		newPendingJob(t, fake)
	}

	executor := ExecutorFunc(func(context.Context, *domain.Job) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	})

	w := New("worker-1", fake, executor, notif, Config{
		PollInterval: 5 * time.Millisecond,
		MaxBackoff:   10 * time.Millisecond,
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		completed, err := fake.ListJobsByStatus(
			context.Background(), domain.JobStatusCompleted, 0)
		return err == nil && len(completed) == jobCount
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	assert.Len(t, notif.notified(), jobCount)
}

func TestWorker_Run_StopsDuringBackoff(t *testing.T) {
	t.Parallel()

	fake := newFakeJobStore()
	fake.claimErr = store.ErrStoreUnavailable

	w := New("worker-1", fake,
		ExecutorFunc(func(context.Context, *domain.Job) (json.RawMessage, error) {
			return nil, nil
		}),
		nil,
		Config{PollInterval: 5 * time.Millisecond, MaxBackoff: time.Minute},
		testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Wait for the first claim attempt, then cancel mid-backoff.
	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return fake.claimCalls >= 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop during backoff")
	}
}

func TestWorker_Run_PollsEmptyQueue(t *testing.T) {
	t.Parallel()

	fake := newFakeJobStore()

	w := New("worker-1", fake,
		ExecutorFunc(func(context.Context, *domain.Job) (json.RawMessage, error) {
			return nil, nil
		}),
		nil,
		Config{PollInterval: time.Millisecond, MaxBackoff: time.Minute},
		testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return fake.claimCalls >= 3
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
