package domain

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the processing state of a submitted document.
type JobStatus string

const (
	JobPending JobStatus = "PENDING"
	JobSuccess JobStatus = "SUCCESS"
	JobFailed  JobStatus = "FAILED"
)

// Terminal reports whether no further transition can happen from s.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobFailed
}

// ParseJobStatus validates a status string received from the server.
func ParseJobStatus(raw string) (JobStatus, error) {
	switch s := JobStatus(raw); s {
	case JobPending, JobSuccess, JobFailed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown job status %q", raw)
	}
}

// Job is one uploaded document together with the state of its server-side analysis.
type Job struct {
	ID       string
	FileName string
	FileURL  string
	Status   JobStatus

	// Result is the generated summary (markdown). Present only when Status is SUCCESS.
	Result string
	// Failure is the fallback artifact (most frequent words). Present only when
	// Status is FAILED; the word list itself may be empty.
	Failure    []string
	HasFailure bool

	SubmittedAt time.Time

	// LocalRef is set on jobs inserted optimistically after an upload and is
	// uuid.Nil for jobs that came from a history fetch.
	LocalRef uuid.UUID
}

// Optimistic reports whether the job was inserted locally and not yet confirmed by a fetch.
func (j Job) Optimistic() bool {
	return j.LocalRef != uuid.Nil
}

// Snapshot is an immutable, point-in-time view of the job collection.
type Snapshot struct {
	Jobs      []Job
	FetchedAt time.Time
}

// HasPending reports whether any job is still PENDING.
func (s Snapshot) HasPending() bool {
	for _, job := range s.Jobs {
		if job.Status == JobPending {
			return true
		}
	}
	return false
}

// Find returns the job with the given id.
func (s Snapshot) Find(id string) (Job, bool) {
	for _, job := range s.Jobs {
		if job.ID == id {
			return job, true
		}
	}
	return Job{}, false
}

// Len returns the number of jobs in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Jobs)
}

// Upload is a document selected for submission.
type Upload struct {
	Name    string
	Content io.Reader
}
