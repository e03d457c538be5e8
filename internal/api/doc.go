// Package api provides the HTTP handlers for the job queue: producers
// insert jobs, external workers claim and resolve them, and operators
// trigger reclaim sweeps. Handlers map store errors to HTTP status
// codes and never expose raw error strings to clients.
package api
