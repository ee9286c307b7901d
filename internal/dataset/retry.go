package dataset

import (
	"context"
	"fmt"
	"time"

	"formalizacion/internal/source"
)

// RetryPolicy bounds how hard the loader tries to reach the source.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy waits 1s, 2s, 4s between four attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 4, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Backoff returns the wait after the given failed attempt (1-based):
// BaseDelay doubled per attempt, capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// run calls op until it succeeds, fails permanently or the attempts run out.
func (p RetryPolicy) run(ctx context.Context, sleep sleepFunc, op func(ctx context.Context, attempt int) error, onRetry func(attempt int, delay time.Duration, err error)) error {
	attempts := max(p.Attempts, 1)
	for attempt := 1; ; attempt++ {
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		if !source.IsTransient(err) {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		delay := p.Backoff(attempt)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}
	}
}
