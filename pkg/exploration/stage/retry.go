package stage

import (
	"context"
	"time"
)

// RetryConfig configures exponential backoff between stage attempts.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	OnRetry    func(attempt int, delay time.Duration, err error)
}

// RetryWithBackoff calls fn until it succeeds, returns a non-retryable error,
// or MaxRetries extra attempts are used. Delays: BaseDelay, BaseDelay*2, BaseDelay*4, ...
// fn receives the 1-based attempt number.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, retryable func(error) bool, fn func(attempt int) error) error {
	delay := cfg.BaseDelay
	attempt := 1
	for {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt > cfg.MaxRetries {
			return err
		}
		if ctx.Err() != nil {
			return err
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, err)
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}

		delay *= 2
		attempt++
	}
}
