package reconciler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pscheid92/resumeinsider/internal/domain"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type mockJobAPI struct {
	mu       sync.Mutex
	calls    int
	listFn   func(ctx context.Context, call int) ([]domain.Job, error)
	uploadFn func(ctx context.Context, upload *domain.Upload) (domain.Job, error)
}

func (m *mockJobAPI) ListJobs(ctx context.Context) ([]domain.Job, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	if m.listFn != nil {
		return m.listFn(ctx, call)
	}
	return nil, nil
}

func (m *mockJobAPI) UploadDocument(ctx context.Context, upload *domain.Upload) (domain.Job, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, upload)
	}
	return domain.Job{ID: "1", FileName: upload.Name, SubmittedAt: baseTime}, nil
}

func (m *mockJobAPI) listCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type staticCredential struct {
	mu sync.Mutex
	ok bool
}

func signedIn() *staticCredential { return &staticCredential{ok: true} }

func (s *staticCredential) Current() (domain.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ok {
		return domain.Credential{}, false
	}
	return domain.Credential{Token: "tok", Username: "alice"}, true
}

func (s *staticCredential) signOut() {
	s.mu.Lock()
	s.ok = false
	s.mu.Unlock()
}

type recordingMetrics struct {
	mu      sync.Mutex
	fetches []string
	submits []string
	ticks   int
	pending int
}

func (r *recordingMetrics) FetchCompleted(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches = append(r.fetches, outcome)
}

func (r *recordingMetrics) SubmitCompleted(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submits = append(r.submits, outcome)
}

func (r *recordingMetrics) PollTick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks++
}

func (r *recordingMetrics) PendingJobs(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = n
}

func pendingJob(id string, age time.Duration) domain.Job {
	return domain.Job{ID: id, FileName: "cv-" + id + ".pdf", Status: domain.JobPending, SubmittedAt: baseTime.Add(-age)}
}

func successJob(id string, age time.Duration) domain.Job {
	job := pendingJob(id, age)
	job.Status = domain.JobSuccess
	job.Result = "## Summary\nStrong Go background."
	return job
}

func failedJob(id string, age time.Duration) domain.Job {
	job := pendingJob(id, age)
	job.Status = domain.JobFailed
	job.Failure = []string{"go", "kubernetes", "postgres"}
	job.HasFailure = true
	return job
}

func upload(name string) *domain.Upload {
	return &domain.Upload{Name: name, Content: strings.NewReader("%PDF-1.4")}
}
