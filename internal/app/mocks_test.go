package app

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/resumeinsider/internal/adapter/tokenstore"
	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/reconciler"
	"github.com/pscheid92/resumeinsider/internal/session"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type mockAuthService struct {
	obtainTokenFn   func(ctx context.Context, username, password string) (string, error)
	createAccountFn func(ctx context.Context, reg domain.Registration) error
}

func (m *mockAuthService) ObtainToken(ctx context.Context, username, password string) (string, error) {
	if m.obtainTokenFn != nil {
		return m.obtainTokenFn(ctx, username, password)
	}
	return "token", nil
}

func (m *mockAuthService) CreateAccount(ctx context.Context, reg domain.Registration) error {
	if m.createAccountFn != nil {
		return m.createAccountFn(ctx, reg)
	}
	return nil
}

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

type fixture struct {
	svc     *Service
	session *session.Manager
	jobs    *reconciler.Reconciler
	api     *mockJobAPI
	store   *tokenstore.Memory
	clock   *clockwork.FakeClock
}

func newFixture(t *testing.T, api *mockJobAPI) *fixture {
	t.Helper()
	store := tokenstore.NewMemory()
	mgr := session.NewManager(&mockAuthService{}, store)
	clock := clockwork.NewFakeClockAt(baseTime)
	jobs := reconciler.New(api, mgr, reconciler.WithClock(clock))
	svc := NewService(mgr, jobs, time.Second)
	t.Cleanup(func() { _ = svc.Close() })
	return &fixture{svc: svc, session: mgr, jobs: jobs, api: api, store: store, clock: clock}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	if _, err := f.svc.Login(context.Background(), "alice", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
}

// advanceTick waits for the poll loop to arm its timer and fires it.
func (f *fixture) advanceTick(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("poll loop never waited: %v", err)
	}
	f.clock.Advance(time.Second)
}

func pendingJob(id string) domain.Job {
	return domain.Job{ID: id, FileName: "cv-" + id + ".pdf", Status: domain.JobPending, SubmittedAt: baseTime}
}

func successJob(id string) domain.Job {
	job := pendingJob(id)
	job.Status = domain.JobSuccess
	job.Result = "# Summary"
	return job
}

func upload(name string) *domain.Upload {
	return &domain.Upload{Name: name, Content: strings.NewReader("%PDF-1.4")}
}
