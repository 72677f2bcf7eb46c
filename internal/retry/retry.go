// Package retry runs operations with exponential backoff.
package retry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// JitterFactor spreads each delay by +/- JitterFactor/2. Zero disables jitter.
	JitterFactor float64
}

// DelayFunc decides whether err is worth retrying. When it returns a positive
// delay, that delay replaces the computed backoff for the next wait.
type DelayFunc func(err error) (delay time.Duration, retry bool)

// Do executes fn up to cfg.MaxAttempts times. delayFor decides which errors
// are retried and may supply a server-provided wait such as Retry-After.
func Do[T any](ctx context.Context, cfg Config, fn func() (T, error), delayFor DelayFunc) (T, error) {
	var lastErr error
	var zero T

	cfg = cfg.withDefaults()
	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		hint, ok := delayFor(err)
		if !ok {
			break
		}

		// Don't wait after the last attempt
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		wait := jitter(delay, cfg.JitterFactor)
		if hint > 0 {
			wait = hint
		}
		slog.Debug("retrying after error", "attempt", attempt+1, "max", cfg.MaxAttempts, "delay", wait, "error", err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, lastErr
}

func jitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 || d <= 0 {
		return d
	}
	return time.Duration(float64(d) + float64(d)*factor*(rand.Float64()-0.5))
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = 1
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = c.InitialDelay
	}
	return c
}
