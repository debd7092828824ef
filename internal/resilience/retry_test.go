package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
	"github.com/fyrsmithlabs/steelman/internal/logging"
)

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestRetrier_SucceedsOnThirdAttempt(t *testing.T) {
	sleeps := &recordedSleeps{}
	tl := logging.NewTestLogger()
	r := NewRetrier(DefaultRetryConfig(), WithSleep(sleeps.sleep), WithLogger(tl.Logger))

	calls := 0
	got, err := Retry(context.Background(), r, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.delays)
	tl.AssertLogged(t, zapcore.InfoLevel, "recovered after retries")
}

func TestRetrier_ExhaustsAfterMaxAttempts(t *testing.T) {
	sleeps := &recordedSleeps{}
	r := NewRetrier(DefaultRetryConfig(), WithSleep(sleeps.sleep))

	last := errors.New("still down")
	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return last
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.delays)

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, last)
	assert.ErrorIs(t, err, apperrors.ErrRetryExhausted)
	assert.Equal(t, apperrors.KindRetryExhausted, apperrors.KindOf(err))
}

func TestRetrier_NonRetryableReturnsImmediately(t *testing.T) {
	sleeps := &recordedSleeps{}
	r := NewRetrier(DefaultRetryConfig(), WithSleep(sleeps.sleep))

	policy := apperrors.New(apperrors.KindContentPolicy, "op", "blocked")
	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return policy
	})

	assert.Same(t, policy, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps.delays)
}

func TestRetrier_CustomPredicate(t *testing.T) {
	sleeps := &recordedSleeps{}
	r := NewRetrier(RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond},
		WithSleep(sleeps.sleep),
		WithRetryable(func(error) bool { return false }),
	)

	calls := 0
	_ = r.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("x")
	})
	assert.Equal(t, 1, calls)
}

func TestRetrier_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRetrier(RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour})

	calls := 0
	err := r.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryConfig_Delay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: time.Second, MaxDelay: 3 * time.Second}
	assert.Equal(t, time.Second, cfg.Delay(1))
	assert.Equal(t, 2*time.Second, cfg.Delay(2))
	assert.Equal(t, 3*time.Second, cfg.Delay(3))
	assert.Equal(t, 3*time.Second, cfg.Delay(40))
}

func TestRetryConfig_ApplyDefaults(t *testing.T) {
	var cfg RetryConfig
	cfg.ApplyDefaults()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.BaseDelay)
}
