package backend

import (
	"context"
	"errors"
	"time"

	"github.com/ValentinKolb/kvproxy/lib/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("backend")

// DefaultTimeout is the budget of a single backend call
const DefaultTimeout = 200 * time.Millisecond

type result[T any] struct {
	value T
	err   error
}

// Invoke issues op exactly once and races it against a deadline of timeout.
// The context passed to op carries the same deadline, so a client honouring
// context deadlines gives up on its connection when the budget is spent. If
// the deadline wins, whatever op returns later is dropped and a Timeout error
// is returned.
// Any error is classified (see Classify) and counted; backend errors are logged.
func Invoke[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	metrics.BackendRequests.Inc()
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// buffered, so the call goroutine never blocks when the deadline has won
	done := make(chan result[T], 1)
	go func() {
		v, err := op(callCtx)
		done <- result[T]{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	var err error
	select {
	case r := <-done:
		metrics.BackendLatency.UpdateSince(start)
		switch {
		case ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded):
			// op noticed the deadline before the timer fired, e.g. as an i/o timeout
			err = timeoutError()
		case r.err == nil:
			return r.value, nil
		default:
			err = Classify(r.err)
		}
	case <-timer.C:
		metrics.BackendLatency.UpdateSince(start)
		err = timeoutError()
	case <-ctx.Done():
		metrics.BackendLatency.UpdateSince(start)
		err = Classify(ctx.Err())
	}

	metrics.BackendErrors.Inc()
	switch KindOf(err) {
	case KindTimeout:
		metrics.BackendTimeouts.Inc()
	case KindRateLimited:
		metrics.BackendRateLimited.Inc()
	case KindBackendError:
		Logger.Errorf("backend error: %v", err)
	}
	return zero, err
}

func timeoutError() *Error {
	return &Error{Kind: KindTimeout, Msg: "backend timeout", Err: context.DeadlineExceeded}
}
