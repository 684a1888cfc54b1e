// Package retry provides bounded retry with backoff for flaky external
// operations (terraform applies, SSH dials, service APIs).
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config holds retry configuration.
type Config struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the wait after the first failed attempt.
	Delay time.Duration
	// MaxDelay caps the growing delay. Zero means uncapped.
	MaxDelay time.Duration
	// Multiplier scales the delay after each attempt. 1.0 keeps it fixed.
	Multiplier float64
	// OnRetry runs before each re-attempt, e.g. to clean up partial
	// state. Its error is logged by callers but does not stop the retry.
	OnRetry func(attempt int, cause error) error
}

// Option is a functional option for retry configuration.
type Option func(*Config)

// Do runs the operation until it succeeds, attempts are exhausted, or the
// context is cancelled. Errors wrapped with Fatal are not retried.
func Do(ctx context.Context, operation func() error, opts ...Option) error {
	cfg := &Config{
		Attempts:   3,
		Delay:      5 * time.Second,
		Multiplier: 2.0,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	delay := cfg.Delay
	var lastErr error

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if IsFatal(err) {
			return fmt.Errorf("fatal error (not retrying): %w", err)
		}
		if attempt == cfg.Attempts {
			break
		}

		if cfg.OnRetry != nil {
			// Cleanup is best effort; the retry proceeds regardless.
			_ = cfg.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt, ctx.Err())
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", cfg.Attempts, lastErr)
}

// WithAttempts sets the total number of tries.
func WithAttempts(n int) Option {
	return func(c *Config) { c.Attempts = n }
}

// WithDelay sets the initial delay between tries.
func WithDelay(d time.Duration) Option {
	return func(c *Config) { c.Delay = d }
}

// WithMaxDelay caps the delay between tries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) { c.MaxDelay = d }
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(c *Config) { c.Multiplier = m }
}

// WithOnRetry installs a hook that runs before each re-attempt.
func WithOnRetry(fn func(attempt int, cause error) error) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// FatalError marks an error as non-retryable.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps an error so Do stops immediately.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether the error chain contains a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
