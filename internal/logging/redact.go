package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/steelman/internal/config"
)

// Secret creates a field for a config.Secret that records only its length.
func Secret(key string, val config.Secret) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val.Value()))+"]")
}

// Truncated creates a field holding at most max runes of val.
// Used for statement text in audit entries.
func Truncated(key, val string, max int) zap.Field {
	if utf8.RuneCountInString(val) <= max {
		return zap.String(key, val)
	}
	runes := []rune(val)
	return zap.String(key, string(runes[:max])+fmt.Sprintf("...(%d more)", len(runes)-max))
}

const redacted = "[REDACTED]"

// sensitiveKeys are field names whose values are never written.
var sensitiveKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"secret":        true,
	"token":         true,
	"authorization": true,
	"credential":    true,
	"password":      true,
}

// secretPatterns match credentials embedded in free text.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),
	regexp.MustCompile(`(?i)api[_-]?key[=:]\s*\S+`),
	regexp.MustCompile(`(?i)bearer\s+\S+`),
}

// redactingEncoder wraps a zapcore.Encoder to redact sensitive fields.
type redactingEncoder struct {
	zapcore.Encoder
}

func newRedactingEncoder(base zapcore.Encoder) *redactingEncoder {
	return &redactingEncoder{Encoder: base}
}

func (e *redactingEncoder) shouldRedactKey(key string) bool {
	return sensitiveKeys[strings.ToLower(key)]
}

// AddString redacts sensitive field names and value patterns.
func (e *redactingEncoder) AddString(key, val string) {
	if e.shouldRedactKey(key) {
		e.Encoder.AddString(key, redacted)
		return
	}
	for _, re := range secretPatterns {
		if re.MatchString(val) {
			e.Encoder.AddString(key, re.ReplaceAllString(val, redacted))
			return
		}
	}
	e.Encoder.AddString(key, val)
}

// AddByteString redacts sensitive field names.
func (e *redactingEncoder) AddByteString(key string, val []byte) {
	if e.shouldRedactKey(key) {
		e.Encoder.AddByteString(key, []byte(redacted))
		return
	}
	e.Encoder.AddByteString(key, val)
}

// AddReflected redacts the entire value if the key is sensitive.
func (e *redactingEncoder) AddReflected(key string, val interface{}) error {
	if e.shouldRedactKey(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

// AddObject redacts the entire object if the key is sensitive.
func (e *redactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.shouldRedactKey(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

// Clone keeps the wrapper; zap clones the encoder for every entry.
func (e *redactingEncoder) Clone() zapcore.Encoder {
	return &redactingEncoder{Encoder: e.Encoder.Clone()}
}

// EncodeEntry applies value-pattern redaction to the fields of an entry.
// zapcore.Encoder.EncodeEntry writes fields through the base encoder directly,
// bypassing the Add* overrides above.
func (e *redactingEncoder) EncodeEntry(ent zapcore.Entry, in []zapcore.Field) (*buffer.Buffer, error) {
	fields := make([]zapcore.Field, len(in))
	copy(fields, in)
	for i, f := range fields {
		if e.shouldRedactKey(f.Key) {
			fields[i] = zap.String(f.Key, redacted)
			continue
		}
		if f.Type == zapcore.StringType {
			for _, re := range secretPatterns {
				if re.MatchString(f.String) {
					fields[i] = zap.String(f.Key, re.ReplaceAllString(f.String, redacted))
					break
				}
			}
		}
	}
	for _, re := range secretPatterns {
		ent.Message = re.ReplaceAllString(ent.Message, redacted)
	}
	return e.Encoder.EncodeEntry(ent, fields)
}
