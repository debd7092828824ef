// Package logging provides structured logging for the steelman engine.
//
// # Overview
//
// The package wraps Zap with:
//   - A custom Trace level (-2, below Debug)
//   - Stdout and/or OpenTelemetry output
//   - Automatic context fields (trace_id, session.id, participant.id, phase)
//   - Redaction of provider credentials
//   - Level-aware sampling (errors are never sampled)
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithSessionID(ctx, "sess_123")
//	ctx = logging.WithParticipant(ctx, "alice")
//	logger.Info(ctx, "statement accepted", zap.Int("remaining", 3))
//
// Components accept a *Logger and fall back to NewNop() when given nil, so a
// session never shares a logger it did not ask for.
//
// # Testing
//
// NewTestLogger returns a logger backed by zaptest/observer with assertion
// helpers (AssertLogged, AssertField, AssertNoSecrets).
package logging
