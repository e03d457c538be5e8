// Package domain contains the core business entities and lifecycle rules
// of the job queue: the Job entity, its status state machine, and the
// validation logic that guards it. It is independent of any specific
// storage or delivery mechanism.
package domain
