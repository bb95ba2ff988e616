// Package backoff is the single retry/backoff utility shared by the provider
// adapters and the webhook queue processor.
package backoff

import (
	"context"
	"errors"
	"time"
)

// PermanentError wraps an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable for Retry.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// retryAfterer is implemented by errors carrying a server-mandated wait,
// e.g. a 429 response with a Retry-After header.
type retryAfterer interface {
	RetryAfter() time.Duration
}

// Delay returns base * 2^attempt.
func Delay(attempt int, base time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return base << uint(attempt)
}

// Retry runs op up to attempts times, sleeping Delay(attempt, base) between
// tries. An error that exposes RetryAfter() overrides the computed delay; an
// error wrapped with Permanent stops immediately. The last error is returned
// once attempts are exhausted.
func Retry(ctx context.Context, attempts int, base time.Duration, op func() error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}

		if attempt == attempts-1 {
			break
		}

		wait := Delay(attempt, base)
		var ra retryAfterer
		if errors.As(err, &ra) && ra.RetryAfter() > 0 {
			wait = ra.RetryAfter()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
