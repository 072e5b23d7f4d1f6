// Package retry retries transient upstream failures with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds, the strategy gives up or ctx ends.
// attempt counts failures so far and starts at 0.
func Do(ctx context.Context, s Strategy, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !s.ShouldRetry(err, attempt) {
			if attempt == 0 {
				return err
			}
			return fmt.Errorf("gave up after %d attempts: %w", attempt+1, err)
		}

		timer := time.NewTimer(s.GetDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
