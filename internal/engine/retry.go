package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bamsammich/fdeploy/internal/event"
)

// RetryPolicy bounds every remote operation.
type RetryPolicy struct {
	Attempts int           // values < 1 mean a single attempt
	Delay    time.Duration // wait between attempts
}

func (p RetryPolicy) attempts() int { return max(p.Attempts, 1) }

// Retry runs fn up to p.Attempts times, waiting p.Delay between attempts.
// Each failed attempt is reported as a Retry event. When every attempt
// fails, a single KindRetryExhausted error is recorded and the run is
// cancelled. Permanent errors (local I/O) are recorded on first sight.
// Returns context.Canceled if the run was cancelled before fn succeeded.
func (rc *RunContext) Retry(p RetryPolicy, op, path string, fn func(attempt int) error) error {
	n := p.attempts()
	var last error
	for attempt := 1; attempt <= n; attempt++ {
		if rc.Cancelled() {
			return context.Canceled
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}

		var perm *permanent
		if errors.As(err, &perm) {
			rc.Fail(perm.err)
			return perm.err
		}

		last = err
		rc.Emit(event.Event{Type: event.Retry, Path: path, Attempt: attempt, Error: err})
		slog.Warn("operation failed", "op", op, "path", path, "attempt", attempt, "of", n, "error", err)

		if attempt < n {
			rc.stats.AddRetries(1)
			if !rc.Sleep(p.Delay) {
				return context.Canceled
			}
		}
	}

	exhausted := &Error{
		Kind: KindRetryExhausted,
		Op:   op,
		Path: path,
		Err:  fmt.Errorf("failed after %d attempts: %w", n, last),
	}
	rc.Fail(exhausted)
	return exhausted
}
