package analysis

import (
	"encoding/json"
	"strings"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
)

const opParse = "analysis.parse"

// resultPayload mirrors Result with pointers so absent fields are detected.
type resultPayload struct {
	IsAccurate     *bool    `json:"isAccurate" validate:"required"`
	IsConstructive *bool    `json:"isConstructive" validate:"required"`
	MissingPoints  []string `json:"missingPoints"`
	Suggestions    []string `json:"suggestions"`
	Confidence     *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
}

type summaryPayload struct {
	Summary      string   `json:"summary" validate:"required"`
	CommonGround []string `json:"commonGround"`
	Fallacies    []string `json:"fallacies"`
	Confidence   *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
}

// ParseResult validates a raw provider reply and decodes it into a Result.
func ParseResult(raw string) (*Result, error) {
	var p resultPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}
	return &Result{
		IsAccurate:     *p.IsAccurate,
		IsConstructive: *p.IsConstructive,
		MissingPoints:  nonNil(p.MissingPoints),
		Suggestions:    nonNil(p.Suggestions),
		Confidence:     *p.Confidence,
	}, nil
}

// ParseSummary validates a raw provider reply and decodes it into a Summary.
func ParseSummary(raw string) (*Summary, error) {
	var p summaryPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}
	return &Summary{
		Summary:      p.Summary,
		CommonGround: nonNil(p.CommonGround),
		Fallacies:    nonNil(p.Fallacies),
		Confidence:   *p.Confidence,
	}, nil
}

func decodePayload(raw string, dst any) error {
	body := stripCodeFence(raw)
	if body == "" {
		return &apperrors.Error{
			Kind: apperrors.KindValidation,
			Op:   opParse,
			Code: "empty_response",
			Msg:  "Empty response",
		}
	}
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return invalidResponse(err)
	}
	if err := schema.Struct(dst); err != nil {
		return invalidResponse(err)
	}
	return nil
}

func invalidResponse(cause error) error {
	return &apperrors.Error{
		Kind: apperrors.KindValidation,
		Op:   opParse,
		Code: "invalid_response",
		Msg:  "Invalid response structure",
		Err:  cause,
	}
}

// stripCodeFence removes a surrounding markdown code fence, with or without
// a language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
