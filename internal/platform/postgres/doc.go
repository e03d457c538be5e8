// Package postgres provides PostgreSQL implementations of the store
// interfaces. The job store is the coordination point for the whole
// queue: claims use row locks with SKIP LOCKED and every lifecycle
// transition is a conditional UPDATE, so no application-level locking
// exists anywhere.
package postgres
