// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the queue's core logic, allowing the claim/report/reclaim rules to
// remain independent of specific database technologies.
package store
