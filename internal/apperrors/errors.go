// Package apperrors defines the error taxonomy shared by the workflow engine.
//
// Every failure that crosses a package boundary is either an *Error carrying a
// Kind, or a typed error (phase mismatch, retry exhaustion) that reports the
// matching Kind through errors.Is. Callers branch on kind, never on message text:
//
//	if errors.Is(err, apperrors.ErrRateLimit) {
//	    wait := apperrors.RetryAfter(err)
//	    ...
//	}
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind categorizes a failure.
type Kind string

const (
	// KindValidation is bad user input. Never retried.
	KindValidation Kind = "validation"
	// KindRateLimit means outbound admission was refused. The caller decides when to retry.
	KindRateLimit Kind = "rate_limit"
	// KindContentPolicy means the provider rejected the content.
	KindContentPolicy Kind = "content_policy"
	// KindPermission is a credentials or configuration problem. Fatal to the session.
	KindPermission Kind = "permission"
	// KindRetryExhausted is a transient provider failure that outlived the retry budget.
	KindRetryExhausted Kind = "retry_exhausted"
	// KindPhaseMismatch is an attempt to complete a phase other than the current one.
	KindPhaseMismatch Kind = "phase_mismatch"
	// KindState is a persistence failure. Non-fatal to in-memory progress.
	KindState Kind = "state"
	// KindPrompt is an unknown template or a missing template parameter.
	KindPrompt Kind = "prompt"
	// KindProvider is any other provider failure.
	KindProvider Kind = "provider"
)

// Sentinel values for errors.Is checks.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrRateLimit      = &Error{Kind: KindRateLimit}
	ErrContentPolicy  = &Error{Kind: KindContentPolicy}
	ErrPermission     = &Error{Kind: KindPermission}
	ErrRetryExhausted = &Error{Kind: KindRetryExhausted}
	ErrPhaseMismatch  = &Error{Kind: KindPhaseMismatch}
	ErrState          = &Error{Kind: KindState}
	ErrPrompt         = &Error{Kind: KindPrompt}
	ErrProvider       = &Error{Kind: KindProvider}
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed (e.g. "analysis.analyze").
	Op string
	// Code is a finer-grained, stable reason (e.g. "too_short").
	Code string
	// Msg is a human-readable description.
	Msg string
	// RetryAfter is a wait hint for rate-limit errors.
	RetryAfter time.Duration
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind.
// Sentinels carry only a Kind; fully populated errors never match each other.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" || t.Code != "" || t.Msg != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a classified error.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: string(kind), Err: err}
}

// Validation creates a validation error with a stable code.
func Validation(op, code, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Code: code, Msg: msg}
}

// RateLimited creates a rate-limit error with a wait hint.
func RateLimited(op string, retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimit,
		Op:         op,
		Code:       "rate_limit",
		Msg:        fmt.Sprintf("rate limit exceeded, retry in %s", retryAfter.Round(time.Millisecond)),
		RetryAfter: retryAfter,
	}
}

// kinded is implemented by typed errors outside this package that still
// belong to the taxonomy.
type kinded interface {
	Kind() Kind
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or "" if err is unclassified.
func KindOf(err error) Kind {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Kind
		case kinded:
			return e.Kind()
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// CodeOf returns the Code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// RetryAfter returns the wait hint of a rate-limit error, or 0.
func RetryAfter(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// Retryable reports whether a failure is worth retrying automatically.
// Only unclassified failures and generic provider failures qualify.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case "", KindProvider:
		return true
	default:
		return false
	}
}

// Fatal reports whether the failure should end the session.
func Fatal(err error) bool {
	switch KindOf(err) {
	case KindPermission, KindPhaseMismatch:
		return true
	default:
		return false
	}
}
