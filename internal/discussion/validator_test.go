package discussion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(0, 0)
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{"empty", "", "empty"},
		{"whitespace only", "  \n\t ", "empty"},
		{"too long", strings.Repeat("a", 1001), "too_long"},
		{"exactly max", strings.Repeat("a", 1000), ""},
		{"too short", "Too short", "too_short"},
		{"exactly min", "0123456789", ""},
		{"multibyte counts runes", strings.Repeat("é", 10), ""},
		{"control char", "Valid text\x07 with bell", "invalid_chars"},
		{"invalid utf8", "Valid text \xff\xfe here", "invalid_chars"},
		{"newlines and tabs allowed", "First line\n\tsecond line", ""},
		{"valid", "Remote work improves focus for most engineers.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.content)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Equal(t, tt.code, apperrors.CodeOf(err))
		})
	}
}

func TestValidator_CustomBounds(t *testing.T) {
	v := NewValidator(3, 5)
	assert.NoError(t, v.Validate("abcd"))
	assert.Equal(t, "too_short", apperrors.CodeOf(v.Validate("ab")))
	assert.Equal(t, "too_long", apperrors.CodeOf(v.Validate("abcdef")))
}
