package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pscheid92/resumeinsider/internal/domain"
	"github.com/pscheid92/resumeinsider/internal/platform/correlation"
)

// Schedule is a running poll loop started by SchedulePolling.
type Schedule struct {
	// mu orders Cancel against applying a fetch result.
	mu        sync.Mutex
	cancelled bool

	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the schedule. It is safe to call at any time and more than once,
// including after the schedule stopped by itself. A fetch still in flight is
// abandoned and its result discarded; once Cancel returns the schedule makes
// no further change to the collection.
func (s *Schedule) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
	s.cancel()
}

// Done is closed when the poll loop has exited.
func (s *Schedule) Done() <-chan struct{} {
	return s.done
}

// Stopped reports whether the poll loop has exited.
func (s *Schedule) Stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// SchedulePolling re-fetches every interval while HasPending is true and stops
// on its own once a fetch leaves no job PENDING. Pending is re-checked against
// the freshly applied collection on every tick. Fetch errors go to the error
// handler and do not stop the schedule. A new fetch is only issued after the
// previous one finished.
func (r *Reconciler) SchedulePolling(interval time.Duration) *Schedule {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Schedule{cancel: cancel, done: make(chan struct{})}
	go r.poll(ctx, s, pollInterval(interval))
	return s
}

func (r *Reconciler) poll(ctx context.Context, s *Schedule, interval time.Duration) {
	defer close(s.done)
	defer s.cancel()

	for r.HasPending() {
		timer := r.clock.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}

		r.metrics.PollTick()
		if !r.HasPending() {
			break
		}

		tickCtx := correlation.WithID(ctx, correlation.NewID())
		slog.DebugContext(tickCtx, "Polling job history")

		if !r.tick(tickCtx, s) {
			return
		}
	}

	slog.Debug("Polling stopped, no pending jobs")
}

// tick runs one fetch for schedule s. It returns false once s was cancelled.
func (r *Reconciler) tick(ctx context.Context, s *Schedule) bool {
	jobs, seq, err := r.download(ctx)

	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return false
	}
	var (
		snap    domain.Snapshot
		changed bool
	)
	if err == nil {
		snap, changed, err = r.apply(ctx, jobs, seq)
	}
	s.mu.Unlock()

	if changed {
		r.publish(snap)
	}
	if err != nil {
		slog.WarnContext(ctx, "Polling fetch failed", "error", err)
		r.report(err)
	}
	return true
}
