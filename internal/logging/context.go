package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 4)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := SessionIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("session.id", id))
	}
	if id := ParticipantFromContext(ctx); id != "" {
		fields = append(fields, zap.String("participant.id", id))
	}
	return fields
}

type sessionCtxKey struct{}
type participantCtxKey struct{}

const maxIDLen = 128

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidateID checks that an identifier is safe to use as a log field and as
// part of a storage key.
func ValidateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, dot, hyphen, underscore)", name)
	}
	return nil
}

// SessionIDFromContext extracts the session ID from context.
func SessionIDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(sessionCtxKey{}).(string)
	return s
}

// WithSessionID adds a session ID to context.
// Panics if sessionID is invalid; session IDs are validated at session creation.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if err := ValidateID(sessionID, "sessionID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, sessionCtxKey{}, sessionID)
}

// ParticipantFromContext extracts the acting participant from context.
func ParticipantFromContext(ctx context.Context) string {
	s, _ := ctx.Value(participantCtxKey{}).(string)
	return s
}

// WithParticipant records which participant triggered the current operation.
// Invalid IDs are dropped rather than logged.
func WithParticipant(ctx context.Context, userID string) context.Context {
	if ValidateID(userID, "participant") != nil {
		return ctx
	}
	return context.WithValue(ctx, participantCtxKey{}, userID)
}
