// Package worker contains the claim/execute/report loop and the
// stale-claim reclaimer. Workers coordinate exclusively through the
// conditional updates of the job store; the package holds no shared
// in-memory queue state, so any number of worker processes can run
// against the same database.
package worker
