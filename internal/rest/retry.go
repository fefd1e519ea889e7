package rest

import (
	"context"
	"errors"
	"net"
	"time"
)

// BackoffPolicy describes retry behavior for operations that can survive
// transient network failure: the initial delay doubles (by Multiplier) after
// each failed attempt.
type BackoffPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultBackoff retries three times with delays of 1s, 2s, and 4s.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		Multiplier:   2.0,
	}
}

func (p BackoffPolicy) delay(retry int) time.Duration {
	delay := p.InitialDelay
	for i := 1; i < retry; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
	}
	return delay
}

// Retry runs fn, retrying per policy while classify reports the failure as
// transient. Fatal failures and context cancellation surface immediately.
// The final error is returned when all attempts are exhausted.
func Retry(ctx context.Context, policy BackoffPolicy, classify func(error) bool, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(policy.delay(attempt)):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !classify(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// IsTransient reports whether an error represents a network-level failure
// that never produced an HTTP response. Errors carrying a server status code
// and decode failures are fatal; context cancellation is fatal.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
