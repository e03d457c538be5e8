package worker

import (
	"context"
	"encoding/json"

	"github.com/workflowlens/runner-api/internal/domain"
)

// Executor runs the actual work a claimed job describes. The queue
// treats execution as a black box: it only cares whether a result or an
// error came back. Executions may take minutes; implementations must
// honor context cancellation.
type Executor interface {
	// Execute processes the job's payload and returns the result to be
	// stored on completion. A returned error marks the job failed with
	// the error's message.
	Execute(ctx context.Context, job *domain.Job) (json.RawMessage, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, job *domain.Job) (json.RawMessage, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, job *domain.Job) (json.RawMessage, error) {
	return f(ctx, job)
}

// Notifier pushes a terminal status transition to the external
// collaborator. Implementations are best-effort: a failed delivery is
// their problem to log, never the worker's problem to handle.
type Notifier interface {
	// Notify reports the job's terminal state. It must not return until
	// delivery has succeeded, failed, or timed out, and must never
	// panic or block indefinitely.
	Notify(ctx context.Context, job *domain.Job)
}

// NoopNotifier discards all notifications. Used when no webhook URL is
// configured and in tests.
type NoopNotifier struct{}

// Notify implements Notifier.
func (NoopNotifier) Notify(context.Context, *domain.Job) {}
