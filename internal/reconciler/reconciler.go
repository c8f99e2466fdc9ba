package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/platform/logging"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxUnconfirmedFetches is how many fetches may miss an optimistic job
// before it is dropped.
const DefaultMaxUnconfirmedFetches = 3

const fetchKey = "history"

// CredentialSource is the read side of the session.
type CredentialSource interface {
	Current() (domain.Credential, bool)
}

// Metrics receives reconciler events.
type Metrics interface {
	FetchCompleted(outcome string)
	SubmitCompleted(outcome string)
	PollTick()
	PendingJobs(n int)
}

type noopMetrics struct{}

func (noopMetrics) FetchCompleted(string)  {}
func (noopMetrics) SubmitCompleted(string) {}
func (noopMetrics) PollTick()              {}
func (noopMetrics) PendingJobs(int)        {}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock sets the clock used for timestamps and polling.
func WithClock(clock clockwork.Clock) Option {
	return func(r *Reconciler) { r.clock = clock }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

// WithErrorHandler receives fetch errors that occur during scheduled polling.
// Polling continues after the handler returns.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Reconciler) { r.onError = fn }
}

// WithMaxUnconfirmedFetches sets how many fetches may miss an optimistic job
// before it is dropped. Negative values are ignored.
func WithMaxUnconfirmedFetches(n int) Option {
	return func(r *Reconciler) {
		if n >= 0 {
			r.maxUnconfirmed = n
		}
	}
}

// Reconciler owns the job collection.
type Reconciler struct {
	api            domain.JobAPI
	session        CredentialSource
	clock          clockwork.Clock
	metrics        Metrics
	onError        func(error)
	maxUnconfirmed int

	fetches singleflight.Group

	mu          sync.RWMutex
	snap        domain.Snapshot
	epoch       uint64
	issued      uint64
	applied     uint64
	unconfirmed map[string]int
	subs        map[int]func(domain.Snapshot)
	errSubs     map[int]func(error)
	nextSub     int
}

// New creates a Reconciler with an empty collection.
func New(api domain.JobAPI, session CredentialSource, opts ...Option) *Reconciler {
	r := &Reconciler{
		api:            api,
		session:        session,
		clock:          clockwork.NewRealClock(),
		metrics:        noopMetrics{},
		maxUnconfirmed: DefaultMaxUnconfirmedFetches,
		unconfirmed:    make(map[string]int),
		subs:           make(map[int]func(domain.Snapshot)),
		errSubs:        make(map[int]func(error)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot returns the current job collection.
func (r *Reconciler) Snapshot() domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// HasPending reports whether any job in the current collection is PENDING.
func (r *Reconciler) HasPending() bool {
	return r.Snapshot().HasPending()
}

// Reset empties the collection. Fetches and uploads started before the call
// no longer change it.
func (r *Reconciler) Reset() {
	r.fetches.Forget(fetchKey)

	r.mu.Lock()
	r.epoch++
	r.issued++
	r.applied = r.issued
	r.snap = domain.Snapshot{}
	r.unconfirmed = make(map[string]int)
	r.mu.Unlock()

	r.metrics.PendingJobs(0)
	r.publish(domain.Snapshot{})
}

// Subscribe registers fn to receive every newly published snapshot. fn runs on
// the publishing goroutine and must not block. The returned func unsubscribes.
func (r *Reconciler) Subscribe(fn func(domain.Snapshot)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// SubscribeErrors registers fn to receive fetch errors from scheduled polling,
// in addition to the handler set with WithErrorHandler.
func (r *Reconciler) SubscribeErrors(fn func(error)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.errSubs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.errSubs, id)
		r.mu.Unlock()
	}
}

// FetchAll reads the full collection from the server and replaces the local one.
// Without a credential it fails with FetchError{unauthenticated} and makes no
// request. On any error the previous collection is kept as it was.
func (r *Reconciler) FetchAll(ctx context.Context) (domain.Snapshot, error) {
	jobs, seq, err := r.download(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}

	snap, changed, err := r.apply(ctx, jobs, seq)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if changed {
		r.publish(snap)
	}
	return snap, nil
}

type download struct {
	jobs []domain.Job
	seq  uint64
}

// download fetches the collection. Concurrent callers share one request; a
// caller whose ctx ends stops waiting without cancelling the others.
func (r *Reconciler) download(ctx context.Context) ([]domain.Job, uint64, error) {
	if _, ok := r.session.Current(); !ok {
		r.metrics.FetchCompleted(string(domain.FetchUnauthenticated))
		return nil, 0, &domain.FetchError{Reason: domain.FetchUnauthenticated, Err: domain.ErrUnauthenticated}
	}

	shared := context.WithoutCancel(ctx)
	ch := r.fetches.DoChan(fetchKey, func() (any, error) {
		r.mu.Lock()
		r.issued++
		seq := r.issued
		r.mu.Unlock()

		jobs, err := r.api.ListJobs(shared)
		if err != nil {
			err = asFetchError(err)
			r.metrics.FetchCompleted(fetchOutcome(err))
			return nil, err
		}
		return download{jobs: jobs, seq: seq}, nil
	})

	select {
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, 0, res.Err
		}
		d := res.Val.(download)
		return d.jobs, d.seq, nil
	}
}

// apply validates fetched and makes it the current collection unless a newer
// fetch has already been applied. It reports whether the collection changed.
func (r *Reconciler) apply(ctx context.Context, fetched []domain.Job, seq uint64) (domain.Snapshot, bool, error) {
	if err := validate(fetched); err != nil {
		r.metrics.FetchCompleted("data_contract")
		slog.ErrorContext(ctx, "Rejected job collection", "error", err)
		return domain.Snapshot{}, false, err
	}

	r.mu.Lock()
	if seq <= r.applied {
		snap := r.snap
		r.mu.Unlock()
		return snap, false, nil
	}

	res := merge(r.snap, fetched, r.unconfirmed, r.maxUnconfirmed)
	r.snap = domain.Snapshot{Jobs: res.jobs, FetchedAt: r.clock.Now()}
	r.unconfirmed = res.unconfirmed
	r.applied = seq
	snap := r.snap
	r.mu.Unlock()

	for _, job := range res.dropped {
		logging.WithJob(job.ID).WarnContext(ctx, "Dropped unconfirmed upload", "file", job.FileName)
	}
	for _, id := range res.regressed {
		logging.WithJob(id).WarnContext(ctx, "Server reported PENDING for a finished job, keeping terminal status")
	}

	r.metrics.FetchCompleted("success")
	r.metrics.PendingJobs(countPending(snap))
	return snap, true, nil
}

// Submit uploads a document and inserts the created job as PENDING. On error
// the collection is unchanged.
func (r *Reconciler) Submit(ctx context.Context, upload *domain.Upload) (domain.Job, error) {
	if upload == nil || upload.Name == "" || upload.Content == nil {
		r.metrics.SubmitCompleted(string(domain.SubmitNoFileSelected))
		return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitNoFileSelected}
	}
	if _, ok := r.session.Current(); !ok {
		r.metrics.SubmitCompleted(string(domain.SubmitUnauthenticated))
		return domain.Job{}, &domain.SubmitError{Reason: domain.SubmitUnauthenticated, Err: domain.ErrUnauthenticated}
	}

	r.mu.RLock()
	epoch := r.epoch
	r.mu.RUnlock()

	job, err := r.api.UploadDocument(ctx, upload)
	if err != nil {
		submitErr := asSubmitError(err)
		r.metrics.SubmitCompleted(string(submitErr.Reason))
		return domain.Job{}, submitErr
	}

	job.Status = domain.JobPending
	job.Result = ""
	job.Failure = nil
	job.HasFailure = false
	job.LocalRef = uuid.New()
	if job.FileName == "" {
		job.FileName = upload.Name
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = r.clock.Now()
	}

	r.mu.Lock()
	if r.epoch != epoch {
		r.mu.Unlock()
		r.metrics.SubmitCompleted("success")
		logging.WithJob(job.ID).InfoContext(ctx, "Document submitted after the collection was reset", "file", job.FileName)
		return job, nil
	}
	jobs := make([]domain.Job, 0, len(r.snap.Jobs)+1)
	for _, existing := range r.snap.Jobs {
		if existing.ID != job.ID {
			jobs = append(jobs, existing)
		}
	}
	jobs = append(jobs, job)
	sortJobs(jobs)
	r.snap = domain.Snapshot{Jobs: jobs, FetchedAt: r.snap.FetchedAt}
	r.unconfirmed[job.ID] = 0
	snap := r.snap
	r.mu.Unlock()

	r.metrics.SubmitCompleted("success")
	r.metrics.PendingJobs(countPending(snap))
	logging.WithJob(job.ID).InfoContext(ctx, "Document submitted", "file", job.FileName)
	r.publish(snap)
	return job, nil
}

func (r *Reconciler) publish(snap domain.Snapshot) {
	r.mu.RLock()
	subs := make([]func(domain.Snapshot), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.RUnlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (r *Reconciler) report(err error) {
	r.mu.RLock()
	handlers := make([]func(error), 0, len(r.errSubs)+1)
	if r.onError != nil {
		handlers = append(handlers, r.onError)
	}
	for _, fn := range r.errSubs {
		handlers = append(handlers, fn)
	}
	r.mu.RUnlock()

	for _, fn := range handlers {
		fn(err)
	}
}

func validate(jobs []domain.Job) error {
	for _, job := range jobs {
		switch {
		case job.Status == domain.JobSuccess && job.Result == "",
			job.Status == domain.JobFailed && !job.HasFailure:
			return &domain.DataContractError{Reason: domain.TerminalStatusMissingPayload, JobID: job.ID, Status: job.Status}
		}
	}
	return nil
}

func countPending(snap domain.Snapshot) int {
	n := 0
	for _, job := range snap.Jobs {
		if job.Status == domain.JobPending {
			n++
		}
	}
	return n
}

func asFetchError(err error) error {
	var fetchErr *domain.FetchError
	switch {
	case errors.As(err, &fetchErr):
		return err
	case domain.IsUnauthenticated(err):
		return &domain.FetchError{Reason: domain.FetchUnauthenticated, Err: err}
	default:
		return &domain.FetchError{Reason: domain.FetchNetwork, Err: err}
	}
}

func fetchOutcome(err error) string {
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		return string(fetchErr.Reason)
	}
	return "error"
}

func asSubmitError(err error) *domain.SubmitError {
	var submitErr *domain.SubmitError
	switch {
	case errors.As(err, &submitErr):
		return submitErr
	case domain.IsUnauthenticated(err):
		return &domain.SubmitError{Reason: domain.SubmitUnauthenticated, Err: err}
	default:
		return &domain.SubmitError{Reason: domain.SubmitNetwork, Err: err}
	}
}

// pollInterval floors intervals so a zero or negative value cannot spin.
func pollInterval(d time.Duration) time.Duration {
	const floor = 100 * time.Millisecond
	if d < floor {
		return floor
	}
	return d
}
