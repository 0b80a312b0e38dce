// Package resilience bounds how long the pipeline waits on slow collaborators.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a call does not finish within its limit.
var ErrTimeout = errors.New("operation timed out")

// WithTimeout runs fn with a context cancelled after timeout and stops waiting
// once the limit is reached, even if fn ignores its context. A non-positive
// timeout runs fn unbounded.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()

	select {
	case err := <-done:
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: cancelled: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w after %v", name, ErrTimeout, timeout)
	}
}
