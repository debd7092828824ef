// Package analysis is the gateway to the text-analysis provider.
//
// A Gateway call passes through four stages: admission by the rate limiter,
// prompt construction from a named template, the provider call wrapped in
// the retrier, and strict parsing of the JSON reply. Provider failures are
// classified by the ErrorOrchestrator into the apperrors taxonomy and logged
// once at that point.
//
// The production provider is GeminiProvider. Tests and offline runs use any
// other Provider implementation.
package analysis
