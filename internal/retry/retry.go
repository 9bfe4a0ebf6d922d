// Package retry implements bounded exponential backoff for Transient
// errors (spec.md §7): the wait doubles after each failed attempt, so three
// attempts from a 100ms base wait 100ms and then 200ms. Context
// cancellation is honored between attempts the way the teacher's
// client/aggregator.go backs off its watch reconnects.
package retry

import (
	"context"
	"time"
)

// WithBackoff calls fn up to attempts times, doubling delay after each
// failure starting at base, until fn succeeds, attempts are exhausted, or
// ctx is done. It returns fn's last error, or ctx.Err() if cancelled first.
func WithBackoff(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := base
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return err
}
