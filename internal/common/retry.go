package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var (
	// ErrRateLimit is returned by remote clients when the service asks them
	// to slow down. WithRetry waits the maximum delay before trying again.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries wraps the last error once every attempt has failed.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryOptions configures exponential backoff for Plaid, SimpleFIN and
// Sheets calls. Zero fields take the defaults of DefaultRetryOptions, except
// InitialDelay which defaults to 100ms.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions returns three attempts starting one second apart.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = 100 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2.0
	}
	return o
}

// RetryableError marks whether an error is worth another attempt. Errors
// without this wrapper are retried.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is explicitly transient: a rate limit, a
// timeout or a RetryableError marked retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var re *RetryableError
	return errors.As(err, &re) && re.Retryable
}

func isPermanent(err error) bool {
	var re *RetryableError
	return errors.As(err, &re) && !re.Retryable
}

// WithRetry runs operation until it succeeds, returns a permanent error, the
// attempts run out or ctx ends.
func WithRetry(ctx context.Context, operation func() error, opts RetryOptions) error {
	opts = opts.withDefaults()
	delay := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
		if attempt == opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, opts.MaxAttempts, err)
		}

		wait := delay
		if errors.Is(err, ErrRateLimit) {
			wait = opts.MaxDelay
		}
		slog.Warn("Remote call failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", wait,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		delay = min(time.Duration(float64(delay)*opts.Multiplier), opts.MaxDelay)
	}
}
