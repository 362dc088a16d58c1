package queue

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Sleeper blocks for d or until ctx is done, returning ctx.Err() in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper backed by a timer.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy builds a fresh delay policy for one retry loop, so concurrent loops never
// share backoff state. backoff.Stop from the policy ends the loop.
type Policy func() backoff.BackOff

// Constant waits d between every attempt.
func Constant(d time.Duration) Policy {
	return func() backoff.BackOff { return backoff.NewConstantBackOff(d) }
}
