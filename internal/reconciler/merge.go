package reconciler

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/pscheid92/resumeinsider/internal/domain"
)

type mergeResult struct {
	jobs        []domain.Job
	unconfirmed map[string]int
	dropped     []domain.Job
	regressed   []string
}

// merge builds the next collection from a successful fetch.
//
// The fetched jobs are authoritative with two exceptions: a job the previous
// collection had in a terminal status keeps it even if the server now says
// PENDING, and optimistic uploads the server does not list yet are carried
// over until they have been missed more than maxMisses times.
func merge(prev domain.Snapshot, fetched []domain.Job, unconfirmed map[string]int, maxMisses int) mergeResult {
	previous := make(map[string]domain.Job, len(prev.Jobs))
	for _, job := range prev.Jobs {
		previous[job.ID] = job
	}

	res := mergeResult{
		jobs:        make([]domain.Job, 0, len(fetched)+len(unconfirmed)),
		unconfirmed: make(map[string]int, len(unconfirmed)),
	}

	seen := make(map[string]struct{}, len(fetched))
	for _, job := range fetched {
		if _, dup := seen[job.ID]; dup {
			continue
		}
		seen[job.ID] = struct{}{}

		if old, ok := previous[job.ID]; ok && old.Status.Terminal() && !job.Status.Terminal() {
			old.LocalRef = job.LocalRef
			res.jobs = append(res.jobs, old)
			res.regressed = append(res.regressed, job.ID)
			continue
		}
		res.jobs = append(res.jobs, job)
	}

	for id, misses := range unconfirmed {
		if _, confirmed := seen[id]; confirmed {
			continue
		}
		job, ok := previous[id]
		if !ok {
			continue
		}
		misses++
		if misses > maxMisses {
			res.dropped = append(res.dropped, job)
			continue
		}
		res.unconfirmed[id] = misses
		res.jobs = append(res.jobs, job)
	}

	sortJobs(res.jobs)
	return res
}

// sortJobs orders newest first, breaking ties by id so the order is stable
// across refreshes.
func sortJobs(jobs []domain.Job) {
	slices.SortStableFunc(jobs, func(a, b domain.Job) int {
		if c := b.SubmittedAt.Compare(a.SubmittedAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})
}

// compareIDs compares numerically when both ids are integers.
func compareIDs(a, b string) int {
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(x, y)
	}
	return cmp.Compare(a, b)
}
