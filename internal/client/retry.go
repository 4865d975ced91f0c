package client

import (
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"digikala/crawler/internal/config"
)

// RetryPolicy describes how many times a request is attempted and how long
// to wait between attempts. Delay grows by Multiplier per retry and is
// capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy is 5 attempts, 4s doubling up to 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   4 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
	}
}

func RetryPolicyFromConfig(cfg config.HTTPConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
		Multiplier:  cfg.RetryMultiplier,
	}
}

// Delay returns the wait before the given retry (1 = first retry).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(retry-1))
	if p.MaxDelay > 0 && (d > float64(p.MaxDelay) || math.IsInf(d, 1)) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds or MaxAttempts is reached. onRetry, if not
// nil, is called with the failed attempt's error before each wait. The last
// error is returned wrapped with ErrRetriesExhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error, onRetry func(attempt int, err error)) error {
	attempts := max(p.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if onRetry != nil {
				onRetry(attempt-1, lastErr)
			}
			if err := sleep(ctx, p.Delay(attempt-1)); err != nil {
				return fmt.Errorf("retry wait cancelled after %d attempts (%v): %w", attempt-1, lastErr, err)
			}
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		log.Debugf("Attempt %d/%d failed: %v", attempt, attempts, lastErr)
	}

	return fmt.Errorf("%w (%d attempts): %w", ErrRetriesExhausted, attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
