// Package retry runs an operation until it succeeds, a permanent error is
// returned, the attempt budget is spent, or the context is cancelled.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds a retry loop. A Multiplier of 1 or less keeps the delay
// fixed between attempts; anything larger grows it after each failure.
type Policy struct {
	Attempts   int
	Delay      time.Duration
	Multiplier float64
}

// Fixed returns a policy with a constant delay between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{Attempts: attempts, Delay: delay}
}

// Exponential returns a policy whose delay doubles after each failure.
func Exponential(attempts int, delay time.Duration) Policy {
	return Policy{Attempts: attempts, Delay: delay, Multiplier: 2}
}

// PermanentError wraps an error that must not be retried.
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err so that [Do] returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Do executes fn up to p.Attempts times. Errors wrapped with [Permanent]
// stop the loop at once and are returned unwrapped. Returns the last error
// if all attempts fail, or ctx.Err() if cancelled while waiting.
func Do(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		lastErr = err

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if p.Multiplier > 1 {
				delay = time.Duration(float64(delay) * p.Multiplier)
			}
		}
	}
	return lastErr
}
