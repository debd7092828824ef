package analysis

import (
	"context"
	"fmt"
	"strings"
)

// Provider generates text for a prompt.
type Provider interface {
	GenerateContent(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
}

// Harm categories and thresholds, named as the Gemini API names them.
const (
	HarmCategoryHarassment      = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech      = "HARM_CATEGORY_HATE_SPEECH"
	BlockMediumAndAbove         = "BLOCK_MEDIUM_AND_ABOVE"
	BlockOnlyHigh               = "BLOCK_ONLY_HIGH"
	harmBlockThresholdMarker    = "HarmBlockThreshold"
	statusResourceExhausted     = "RESOURCE_EXHAUSTED"
	statusPermissionDenied      = "PERMISSION_DENIED"
	permissionDeniedMessageText = "Permission denied"
)

// SafetySetting blocks content of Category at or above Threshold.
type SafetySetting struct {
	Category  string
	Threshold string
}

// GenerationConfig holds sampling and safety parameters for one call.
type GenerationConfig struct {
	Temperature     float32
	TopK            int32
	TopP            float32
	MaxOutputTokens int32
	SafetySettings  []SafetySetting
}

// DefaultGenerationConfig returns the default sampling parameters with
// harassment blocked at medium and above.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
		SafetySettings: []SafetySetting{
			{Category: HarmCategoryHarassment, Threshold: BlockMediumAndAbove},
		},
	}
}

// forTemplate applies a template's overrides.
func (c GenerationConfig) forTemplate(t Template) GenerationConfig {
	out := c
	out.SafetySettings = append([]SafetySetting(nil), c.SafetySettings...)
	if t.MaxOutputTokens > 0 {
		out.MaxOutputTokens = t.MaxOutputTokens
	}
	if t.Temperature != nil {
		out.Temperature = *t.Temperature
	}
	return out
}

// ErrorDetail is one structured detail attached to a provider error.
type ErrorDetail struct {
	Type     string
	Metadata map[string]string
}

// ProviderError is a failure reported by the provider.
type ProviderError struct {
	// Status is the HTTP status code, 0 if unknown.
	Status int
	// Code is the provider's status string, e.g. RESOURCE_EXHAUSTED.
	Code    string
	Message string
	Details []ErrorDetail
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString("provider error")
	if e.Status != 0 {
		fmt.Fprintf(&b, " %d", e.Status)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// blockedByHarmThreshold reports whether any detail references a harm
// block threshold.
func (e *ProviderError) blockedByHarmThreshold() bool {
	for _, d := range e.Details {
		if strings.Contains(d.Type, harmBlockThresholdMarker) {
			return true
		}
		for k, v := range d.Metadata {
			if strings.Contains(k, harmBlockThresholdMarker) || strings.Contains(v, harmBlockThresholdMarker) {
				return true
			}
		}
	}
	return false
}

// metadata returns the first value stored under key in any detail.
func (e *ProviderError) metadata(key string) string {
	for _, d := range e.Details {
		if v, ok := d.Metadata[key]; ok {
			return v
		}
	}
	return ""
}
