package analysis

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when GeminiConfig.Model is empty.
const DefaultGeminiModel = "gemini-2.0-flash"

// contentGenerator is the slice of the genai client the provider needs.
// *genai.Models satisfies it.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures GeminiProvider.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiProvider implements Provider on the Gemini API.
type GeminiProvider struct {
	models contentGenerator
	model  string
}

// NewGeminiProvider creates a provider backed by a genai client.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGeminiProvider(client.Models, cfg.Model), nil
}

func newGeminiProvider(models contentGenerator, model string) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{models: models, model: model}
}

// Model returns the model name requests are sent to.
func (p *GeminiProvider) Model() string {
	return p.model
}

// GenerateContent sends prompt as a single user turn and returns the reply
// text. Blocked prompts and safety stops are reported as *ProviderError with
// a HarmBlockThreshold detail.
func (p *GeminiProvider) GenerateContent(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	resp, err := p.models.GenerateContent(ctx, p.model, genai.Text(prompt), toGenaiConfig(cfg))
	if err != nil {
		return "", fromGenaiError(err)
	}
	if resp == nil {
		return "", nil
	}

	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", &ProviderError{
			Status:  400,
			Code:    "BLOCKED",
			Message: "prompt blocked: " + string(fb.BlockReason),
			Details: []ErrorDetail{blockDetail(string(fb.BlockReason))},
		}
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", &ProviderError{
			Status:  400,
			Code:    "BLOCKED",
			Message: "response stopped by safety filter",
			Details: []ErrorDetail{blockDetail(string(genai.FinishReasonSafety))},
		}
	}
	return resp.Text(), nil
}

func blockDetail(reason string) ErrorDetail {
	return ErrorDetail{
		Type: "safety",
		Metadata: map[string]string{
			"reason":    reason,
			"threshold": harmBlockThresholdMarker,
		},
	}
}

func toGenaiConfig(cfg GenerationConfig) *genai.GenerateContentConfig {
	out := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(cfg.Temperature),
		TopP:             genai.Ptr(cfg.TopP),
		TopK:             genai.Ptr(float32(cfg.TopK)),
		MaxOutputTokens:  cfg.MaxOutputTokens,
		ResponseMIMEType: "application/json",
	}
	for _, s := range cfg.SafetySettings {
		out.SafetySettings = append(out.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return out
}

// fromGenaiError converts genai API errors to *ProviderError. Other errors
// (transport, context) are returned unchanged.
func fromGenaiError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) || apiErrPtr == nil {
			return err
		}
		apiErr = *apiErrPtr
	}
	pe := &ProviderError{
		Status:  apiErr.Code,
		Code:    apiErr.Status,
		Message: apiErr.Message,
	}
	for _, d := range apiErr.Details {
		pe.Details = append(pe.Details, toErrorDetail(d))
	}
	return pe
}

// toErrorDetail flattens a google.rpc detail: "@type" becomes Type, string
// members of "metadata" and top-level strings (reason, retryDelay) become
// Metadata.
func toErrorDetail(d map[string]any) ErrorDetail {
	out := ErrorDetail{Metadata: map[string]string{}}
	for k, v := range d {
		switch val := v.(type) {
		case string:
			if k == "@type" {
				out.Type = val
			} else {
				out.Metadata[k] = val
			}
		case map[string]any:
			for mk, mv := range val {
				if s, ok := mv.(string); ok {
					out.Metadata[mk] = s
				}
			}
		}
	}
	return out
}
