package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxAttempts bounds the retry loop around one API call.
const DefaultMaxAttempts = 3

// transientError marks a failure worth retrying: rate limits, transient
// server errors, network hiccups. Anything else (bad credentials, unknown
// model, malformed request) is permanent and fails immediately.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err to mark it retryable. Providers classify their SDK
// errors with this at the point where the status code is known.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retryable.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Retry runs fn up to maxAttempts times, sleeping 1s, 2s, 4s... between
// attempts (exponential backoff, base 2). Only transient errors are
// retried. A zero maxAttempts uses DefaultMaxAttempts.
func Retry(ctx context.Context, maxAttempts int, fn func() (string, error)) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		out, err := fn()
		if err == nil {
			return out, nil
		}
		if !IsTransient(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}
