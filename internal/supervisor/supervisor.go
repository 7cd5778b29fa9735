// Package supervisor wraps a long-lived task's run loop so a panic or
// returned error gets logged and the task restarted, rather than taking the
// rest of the process down with it, applied uniformly to every background
// task.
//
// The backoff sequence doubles the restart delay from a floor up to a
// ceiling, resetting once a run has stayed up long enough to be considered
// clean.
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/coldroom/coldroom-ctl/internal/logging"
)

// minBackoff and maxBackoff bound the restart delay after a failing task
// iteration, the same floor/ceiling shape as bridge.go's backoffSeq.
const (
	minBackoff = 250 * time.Millisecond
	maxBackoff = 10 * time.Second
)

// Done adapts a context.Context to the stop-chan signature every task's
// Run method already uses, so supervisor.Run can wrap them without having
// to change their constructors.
func Done(ctx context.Context) <-chan struct{} {
	return ctx.Done()
}

// Run supervises fn: if fn returns a non-nil error, or panics, the failure
// is logged and fn is restarted after an exponentially increasing delay,
// reset to the floor after a run lasting longer than maxBackoff. Run
// returns nil once ctx is cancelled; it never returns a task's error
// directly, since a supervised task is expected to run forever.
func Run(ctx context.Context, log *logging.Log, name string, fn func(ctx context.Context) error) error {
	delay := minBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		start := time.Now()
		err := runOnce(ctx, fn)
		ran := time.Since(start)

		if ctx.Err() != nil {
			return nil
		}

		if err == nil {
			// A task that returns nil without ctx being cancelled is not
			// expected to happen for the long-lived tasks this wraps, but
			// treat it the same as a failure: restart rather than leave the
			// system short a task.
			logError(log, name, fmt.Errorf("task exited without error"))
		} else {
			logError(log, name, err)
		}

		if ran >= maxBackoff {
			delay = minBackoff
		}

		if !sleep(ctx, delay) {
			return nil
		}
		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
}

// runOnce calls fn, converting a panic into an error so one task's bug
// cannot take down the whole process.
func runOnce(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

func logError(log *logging.Log, name string, err error) {
	if log == nil {
		return
	}
	_ = log.Errorf("supervisor: task %q failed: %v", name, err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
