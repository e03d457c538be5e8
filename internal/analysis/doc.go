// Package analysis implements job execution: it turns a claimed job's
// payload into a video-analysis request against the Gemini API and
// returns the structured result. Transient API failures are retried
// with exponential backoff inside Execute; anything that survives the
// retries surfaces as an execution failure and marks the job failed.
package analysis
