// Package discussion implements the participant-facing rules of a
// steel-manning discussion: statement validation, per-participant quotas,
// the restatement check and the phase gates that enforce them.
//
// Everything here operates on values passed in by the caller. The session
// package owns the statement list and serializes access to it.
package discussion
