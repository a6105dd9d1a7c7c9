package retry

import (
	"context"
	"errors"
	"time"
)

// Policy retries an operation with exponential backoff. Only errors marked
// Transient are retried; everything else fails immediately.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks an error as retryable (network failure, vendor 5xx).
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with Transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Do runs op until it succeeds, returns a non-transient error, or the
// attempt ceiling is reached. The delay doubles each attempt, capped at
// MaxDelay, and the wait respects ctx cancellation.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := p.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		if delay <= 0 {
			delay = 100 * time.Millisecond
		}
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
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
