// Package notifier delivers best-effort completion webhooks. Delivery
// failures are logged and dropped: the job's terminal state in the
// store is the source of truth, and a collaborator that missed a
// notification can always poll the job instead.
package notifier
