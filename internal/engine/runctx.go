package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/bamsammich/fdeploy/internal/event"
	"github.com/bamsammich/fdeploy/internal/stats"
)

// RunContext is the state shared by every component of one deployment run:
// the cooperative cancellation signal, the accumulated error list, the
// progress event sink, the clock used for every wait, and the counters.
type RunContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan<- event.Event
	clock  clockwork.Clock
	stats  *stats.Collector
	runID  string

	mu   sync.Mutex
	errs []error
}

// RunOptions configures a RunContext. Zero values are usable.
type RunOptions struct {
	RunID  string // "" = random UUID
	Events chan<- event.Event
	Clock  clockwork.Clock
	Stats  *stats.Collector
}

// NewRunContext derives a cancellable run from parent. Cancelling parent
// (e.g. on SIGINT) cancels the run.
func NewRunContext(parent context.Context, opts RunOptions) *RunContext {
	ctx, cancel := context.WithCancel(parent)
	rc := &RunContext{
		ctx:    ctx,
		cancel: cancel,
		events: opts.Events,
		clock:  opts.Clock,
		stats:  opts.Stats,
		runID:  opts.RunID,
	}
	if rc.runID == "" {
		rc.runID = uuid.NewString()
	}
	if rc.clock == nil {
		rc.clock = clockwork.NewRealClock()
	}
	if rc.stats == nil {
		rc.stats = stats.NewCollector()
	}
	return rc
}

// Context returns the run's context. It is done once the run is cancelled.
func (rc *RunContext) Context() context.Context { return rc.ctx }

// Cancelled reports whether the run has been cancelled.
func (rc *RunContext) Cancelled() bool { return rc.ctx.Err() != nil }

// Cancel raises the cancellation signal without recording an error.
func (rc *RunContext) Cancel() { rc.cancel() }

// Fail records err and cancels the run. Work in flight finishes on its own;
// no new work starts.
func (rc *RunContext) Fail(err error) {
	if err == nil {
		return
	}
	rc.mu.Lock()
	rc.errs = append(rc.errs, err)
	rc.mu.Unlock()

	rc.stats.AddErrors(1)
	slog.Error("deployment failed", "run", rc.runID, "error", err)
	rc.cancel()
}

// Errors returns the recorded errors in the order they occurred.
func (rc *RunContext) Errors() []error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]error, len(rc.errs))
	copy(out, rc.errs)
	return out
}

// Err joins every recorded error. A run cancelled from outside with no
// recorded error reports context.Canceled.
func (rc *RunContext) Err() error {
	if errs := rc.Errors(); len(errs) > 0 {
		return errors.Join(errs...)
	}
	return rc.ctx.Err()
}

// Emit sends e to the event sink without blocking. Events are dropped when
// the consumer lags.
func (rc *RunContext) Emit(e event.Event) {
	if rc.events == nil {
		return
	}
	e.Timestamp = rc.clock.Now()
	select {
	case rc.events <- e:
	default:
	}
}

// Sleep waits for d on the run clock. It returns false if the run was
// cancelled before or during the wait.
func (rc *RunContext) Sleep(d time.Duration) bool {
	if d <= 0 {
		return !rc.Cancelled()
	}
	select {
	case <-rc.ctx.Done():
		return false
	case <-rc.clock.After(d):
		return !rc.Cancelled()
	}
}

func (rc *RunContext) Clock() clockwork.Clock  { return rc.clock }
func (rc *RunContext) Stats() *stats.Collector { return rc.stats }
func (rc *RunContext) RunID() string           { return rc.runID }
