package pos

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/storefront/backend/internal/domain"
)

// RetryConfig configures the request executor
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// HonorRetryAfter waits at least the server's Retry-After on 429s
	// instead of only the exponential schedule.
	HonorRetryAfter bool

	// Jitter adds up to 10% random delay on top of each backoff.
	Jitter bool
}

// DefaultRetryConfig returns 3 attempts starting at 1s
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		HonorRetryAfter: true,
	}
}

// Executor runs remote calls with bounded retry and exponential backoff.
type Executor struct {
	cfg   RetryConfig
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor, filling zero values from DefaultRetryConfig
func NewExecutor(cfg RetryConfig) *Executor {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}

	return &Executor{cfg: cfg, sleep: sleepContext}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or runs out
// of attempts. The last error is returned unchanged.
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < e.cfg.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !domain.IsRetryable(lastErr) {
			log.Printf("[Retry] %s failed with non-retryable error: %v", op, lastErr)
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt == e.cfg.MaxAttempts-1 {
			break
		}

		delay := e.delay(attempt, lastErr)
		log.Printf("[Retry] %s attempt %d/%d failed: %v (retrying in %s)", op, attempt+1, e.cfg.MaxAttempts, lastErr, delay)

		if err := e.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%w: %w", err, lastErr)
		}
	}

	log.Printf("[Retry] %s: all %d attempts failed", op, e.cfg.MaxAttempts)
	return lastErr
}

// delay returns the wait before the attempt following the given 0-indexed one
func (e *Executor) delay(attempt int, err error) time.Duration {
	d := exponentialBackoff(e.cfg.BaseDelay, attempt)
	if e.cfg.Jitter {
		d += time.Duration(rand.Int64N(int64(d)/10 + 1))
	}
	if e.cfg.HonorRetryAfter {
		if retryAfter, ok := domain.RetryAfterOf(err); ok && retryAfter > d {
			d = retryAfter
		}
	}
	return d
}

// maxBackoff bounds a single exponential wait; Retry-After may still exceed it
const maxBackoff = time.Minute

// exponentialBackoff returns base * 2^attempt, clamped to maxBackoff
func exponentialBackoff(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 63 || base > maxBackoff>>uint(attempt) {
		return maxBackoff
	}
	return base << uint(attempt)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
