// Package resilience provides the admission and retry primitives that wrap
// every call to the text-analysis provider.
//
// RateLimiter is a sliding-window counter: at most Max admissions in any
// Window. Retrier re-runs an operation with exponential backoff while a
// caller-supplied predicate says the failure is transient.
package resilience
