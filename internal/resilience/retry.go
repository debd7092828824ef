package resilience

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
	"github.com/fyrsmithlabs/steelman/internal/logging"
)

// maxBackoff bounds doubling so large attempt numbers cannot overflow.
const maxBackoff = 24 * time.Hour

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// BaseDelay is the wait before the second attempt. Attempt n waits
	// BaseDelay * 2^(n-1).
	// Default: 1 second
	BaseDelay time.Duration

	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaults.BaseDelay
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (c RetryConfig) Delay(attempt int) time.Duration {
	d := c.BaseDelay
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// RetryExhaustedError is returned when every attempt failed with a
// retryable error.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap returns the last attempt's error.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}

// Is matches apperrors.ErrRetryExhausted.
func (e *RetryExhaustedError) Is(target error) bool {
	return target == apperrors.ErrRetryExhausted
}

// Kind places the error in the apperrors taxonomy.
func (e *RetryExhaustedError) Kind() apperrors.Kind {
	return apperrors.KindRetryExhausted
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrier runs operations with exponential backoff.
type Retrier struct {
	config    RetryConfig
	retryable func(error) bool
	sleep     SleepFunc
	logger    *logging.Logger
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithRetryable sets the predicate deciding whether a failure is retried.
// The default is apperrors.Retryable.
func WithRetryable(fn func(error) bool) RetrierOption {
	return func(r *Retrier) {
		r.retryable = fn
	}
}

// WithSleep replaces the backoff wait.
func WithSleep(fn SleepFunc) RetrierOption {
	return func(r *Retrier) {
		r.sleep = fn
	}
}

// WithLogger sets the logger for retry attempts.
func WithLogger(l *logging.Logger) RetrierOption {
	return func(r *Retrier) {
		r.logger = l
	}
}

// NewRetrier creates a Retrier.
func NewRetrier(cfg RetryConfig, opts ...RetrierOption) *Retrier {
	cfg.ApplyDefaults()
	r := &Retrier{
		config:    cfg,
		retryable: apperrors.Retryable,
		sleep:     sleepContext,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	return r
}

// Config returns the effective configuration.
func (r *Retrier) Config() RetryConfig {
	return r.config
}

// Do runs op until it succeeds, fails with a non-retryable error, the
// attempts run out, or ctx is cancelled.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	_, err := Retry(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Retry is the value-returning form of Retrier.Do.
func Retry[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	start := time.Now()

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				r.logger.Info(ctx, "operation recovered after retries",
					zap.Int("attempts", attempt),
					zap.Duration("total_time", time.Since(start)),
				)
			}
			return v, nil
		}
		lastErr = err

		if !r.retryable(err) {
			return zero, err
		}
		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.config.Delay(attempt)
		r.logger.Info(ctx, "retrying after transient error",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.config.MaxAttempts),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry cancelled after attempt %d: %w", attempt, err)
		}
	}

	r.logger.Warn(ctx, "operation failed after all retries exhausted",
		zap.Int("total_attempts", r.config.MaxAttempts),
		zap.Duration("total_time", time.Since(start)),
		zap.Error(lastErr),
	)
	return zero, &RetryExhaustedError{Attempts: r.config.MaxAttempts, Last: lastErr}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
