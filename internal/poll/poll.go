// Package poll provides the bounded retry-with-backoff primitive used by
// every suspend point in the workflow: browser element waits, job status
// polling, and queue backoff.
package poll

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when the bound elapses before the predicate holds.
var ErrTimeout = errors.New("poll: timed out")

// Until repeatedly evaluates fn every interval until it returns true, an
// error, the context is cancelled, or timeout elapses. The predicate is
// checked once immediately; only the inter-poll backoff uses a fixed sleep.
// Returns ErrTimeout at or after the bound, never earlier.
func Until(ctx context.Context, interval, timeout time.Duration, fn func() (bool, error)) error {
	deadline := time.Now().Add(timeout)

	for {
		done, err := fn()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}

		wait := interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
