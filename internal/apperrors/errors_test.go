package apperrors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mismatch struct{}

func (mismatch) Error() string { return "mismatch" }
func (mismatch) Kind() Kind    { return KindPhaseMismatch }

func TestError_IsMatchesSentinelKind(t *testing.T) {
	err := Validation("discussion.validate", "too_short", "statement too short")

	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrRateLimit)

	wrapped := fmt.Errorf("add statement: %w", err)
	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.Equal(t, "too_short", CodeOf(wrapped))
}

func TestError_PopulatedErrorsDoNotMatchEachOther(t *testing.T) {
	a := Validation("op", "empty", "a")
	b := Validation("op", "empty", "b")
	assert.False(t, errors.Is(a, b))
}

func TestError_MessageIncludesOpAndCause(t *testing.T) {
	err := Wrap(KindState, "progress.save", errors.New("disk full"))
	assert.Equal(t, "progress.save: state: disk full", err.Error())
	assert.ErrorIs(t, err, ErrState)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), ""},
		{"classified", New(KindPermission, "op", "denied"), KindPermission},
		{"wrapped classified", fmt.Errorf("x: %w", New(KindPrompt, "op", "m")), KindPrompt},
		{"kinded type", fmt.Errorf("x: %w", mismatch{}), KindPhaseMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.True(t, Retryable(errors.New("connection reset")))
	assert.True(t, Retryable(New(KindProvider, "op", "503")))
	assert.False(t, Retryable(Validation("op", "empty", "empty")))
	assert.False(t, Retryable(New(KindContentPolicy, "op", "blocked")))
	assert.False(t, Retryable(RateLimited("op", time.Second)))
}

func TestFatal(t *testing.T) {
	assert.True(t, Fatal(New(KindPermission, "op", "denied")))
	assert.True(t, Fatal(mismatch{}))
	assert.False(t, Fatal(New(KindState, "op", "disk")))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Statement is too short. Please add more detail.",
		UserMessage(Validation("op", "too_short", "short")))
	assert.Equal(t, "Please check your input.", UserMessage(Validation("op", "weird", "x")))
	assert.Equal(t, "Please wait 30s before trying again.", UserMessage(RateLimited("op", 30*time.Second)))
	assert.Contains(t, UserMessage(New(KindRetryExhausted, "op", "x")), "resume later")
}

type exhausted struct{ last error }

func (e exhausted) Error() string { return "exhausted: " + e.last.Error() }
func (e exhausted) Unwrap() error { return e.last }
func (exhausted) Kind() Kind      { return KindRetryExhausted }

func TestKindOf_OutermostWins(t *testing.T) {
	err := fmt.Errorf("analyze: %w", exhausted{last: New(KindProvider, "op", "503")})
	assert.Equal(t, KindRetryExhausted, KindOf(err))
}
