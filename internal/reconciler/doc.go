// Package reconciler keeps a local view of the user's jobs in step with the
// history endpoint.
//
// The Reconciler owns the job collection. FetchAll replaces it atomically,
// Submit inserts an optimistic PENDING job, and SchedulePolling re-fetches on
// an interval for as long as any job is still PENDING. Readers get immutable
// domain.Snapshot values and never observe a half-applied fetch.
package reconciler
