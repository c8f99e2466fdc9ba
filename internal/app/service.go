package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/reconciler"
	"github.com/pscheid92/resumeinsider/internal/session"
)

// Service is the application layer. It is the only component that references
// both the session and the reconciler.
type Service struct {
	session  *session.Manager
	jobs     *reconciler.Reconciler
	interval time.Duration

	mu       sync.Mutex
	schedule *reconciler.Schedule
	closers  []func() error
}

// NewService creates the application layer service.
func NewService(sess *session.Manager, jobs *reconciler.Reconciler, interval time.Duration) *Service {
	s := &Service{
		session:  sess,
		jobs:     jobs,
		interval: interval,
	}
	jobs.SubscribeErrors(s.handlePollError)
	sess.SubscribeCleared(s.handleSessionEnded)
	return s
}

// Restore loads the persisted session. A storage failure is logged and leaves
// the user signed out.
func (s *Service) Restore(ctx context.Context) {
	if _, err := s.session.RestoreSession(ctx); err != nil {
		slog.WarnContext(ctx, "Starting without a session", "error", err)
	}
}

// Login signs the user in. Signing in as a different user discards the
// previous user's job collection.
func (s *Service) Login(ctx context.Context, username, password string) (domain.Credential, error) {
	prev, hadPrev := s.session.Current()
	cred, err := s.session.Authenticate(ctx, username, password)
	if err != nil {
		return domain.Credential{}, err
	}
	if !hadPrev || prev.Username != cred.Username {
		s.StopPolling()
		s.jobs.Reset()
	}
	return cred, nil
}

// Logout stops polling, clears the session and empties the job collection.
func (s *Service) Logout(ctx context.Context) {
	s.StopPolling()
	s.session.ClearSession(ctx)
	s.jobs.Reset()
}

func (s *Service) Register(ctx context.Context, reg domain.Registration) error {
	return s.session.Register(ctx, reg)
}

func (s *Service) Current() (domain.Credential, bool) {
	return s.session.Current()
}

func (s *Service) SessionState() session.State {
	return s.session.State()
}

// Ready is closed once the persisted session has been restored.
func (s *Service) Ready() <-chan struct{} {
	return s.session.Ready()
}

// Upload submits a document and makes sure its progress is polled.
func (s *Service) Upload(ctx context.Context, upload *domain.Upload) (domain.Job, error) {
	job, err := s.jobs.Submit(ctx, upload)
	if err != nil {
		return domain.Job{}, err
	}
	s.EnsurePolling()
	return job, nil
}

// History returns the job views. The collection is fetched when refresh is set
// or nothing has been fetched yet; otherwise the polled snapshot is served.
func (s *Service) History(ctx context.Context, refresh bool) ([]reconciler.View, error) {
	snap := s.jobs.Snapshot()
	if refresh || snap.FetchedAt.IsZero() {
		var err error
		if snap, err = s.jobs.FetchAll(ctx); err != nil {
			return nil, err
		}
	}
	s.EnsurePolling()
	return reconciler.PresentAll(snap)
}

// Watch fetches the collection, then reports every new snapshot to fn until no
// job is pending. It returns domain.ErrUnauthenticated if the session ends
// while watching.
func (s *Service) Watch(ctx context.Context, fn func(domain.Snapshot)) error {
	unsubscribe := s.jobs.Subscribe(fn)
	defer unsubscribe()

	if _, err := s.jobs.FetchAll(ctx); err != nil {
		return err
	}

	schedule := s.EnsurePolling()
	if schedule == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-schedule.Done():
	}

	if _, ok := s.session.Current(); !ok {
		return domain.ErrUnauthenticated
	}
	return nil
}

// EnsurePolling starts a poll loop if the user is signed in, jobs are pending
// and no loop is running. It returns the running schedule, or nil when there is
// nothing to poll.
func (s *Service) EnsurePolling() *reconciler.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule != nil && !s.schedule.Stopped() {
		return s.schedule
	}
	if _, ok := s.session.Current(); !ok || !s.jobs.HasPending() {
		return nil
	}

	s.schedule = s.jobs.SchedulePolling(s.interval)
	slog.Debug("Polling started", "interval", s.interval)
	return s.schedule
}

// StopPolling cancels the running poll loop, if any.
func (s *Service) StopPolling() {
	s.mu.Lock()
	schedule := s.schedule
	s.schedule = nil
	s.mu.Unlock()

	if schedule != nil {
		schedule.Cancel()
	}
}

// handlePollError ends polling once the session is gone; there is nothing a
// signed-out poll loop could fetch.
func (s *Service) handlePollError(err error) {
	if domain.IsUnauthenticated(err) {
		s.handleSessionEnded()
	}
}

// handleSessionEnded drops everything that belonged to the signed-out user.
func (s *Service) handleSessionEnded() {
	slog.Info("Session ended, stopping polling")
	s.StopPolling()
	s.jobs.Reset()
}

// Close stops polling and releases the token store connection.
func (s *Service) Close() error {
	s.StopPolling()
	var firstErr error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
