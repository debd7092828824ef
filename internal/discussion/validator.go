package discussion

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
)

// Statement length bounds, in runes.
const (
	DefaultMinLength = 10
	DefaultMaxLength = 1000
)

// Validator checks statement text. It is pure and safe for concurrent use.
type Validator struct {
	MinLength int
	MaxLength int
}

// NewValidator returns a validator with the given bounds. Non-positive
// values select the defaults.
func NewValidator(minLength, maxLength int) Validator {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return Validator{MinLength: minLength, MaxLength: maxLength}
}

// Validate returns a validation error with code empty, too_long, too_short
// or invalid_chars, checked in that order.
func (v Validator) Validate(content string) error {
	const op = "discussion.validate"

	text := strings.TrimSpace(content)
	if text == "" {
		return apperrors.Validation(op, "empty", "statement cannot be empty")
	}
	n := utf8.RuneCountInString(text)
	if n > v.MaxLength {
		return apperrors.Validation(op, "too_long",
			fmt.Sprintf("statement is %d characters, maximum is %d", n, v.MaxLength))
	}
	if n < v.MinLength {
		return apperrors.Validation(op, "too_short",
			fmt.Sprintf("statement is %d characters, minimum is %d", n, v.MinLength))
	}
	if !validChars(text) {
		return apperrors.Validation(op, "invalid_chars", "statement contains invalid characters")
	}
	return nil
}

// validChars rejects invalid UTF-8 and control characters other than
// line breaks and tabs.
func validChars(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch r {
		case '\n', '\r', '\t':
			continue
		}
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
