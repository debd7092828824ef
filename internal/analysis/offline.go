package analysis

import (
	"context"
	"encoding/json"
	"strings"
)

// OfflineProvider answers every prompt locally with a favourable verdict.
// It lets a session run end to end without network access.
type OfflineProvider struct{}

type offlineReply struct {
	IsAccurate     bool     `json:"isAccurate"`
	IsConstructive bool     `json:"isConstructive"`
	MissingPoints  []string `json:"missingPoints"`
	Suggestions    []string `json:"suggestions"`
	Confidence     float64  `json:"confidence"`
	Summary        string   `json:"summary"`
	CommonGround   []string `json:"commonGround"`
	Fallacies      []string `json:"fallacies"`
}

// GenerateContent returns a reply that satisfies both the Result and the
// Summary schema.
func (OfflineProvider) GenerateContent(ctx context.Context, prompt string, _ GenerationConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	reply := offlineReply{
		IsAccurate:     true,
		IsConstructive: true,
		MissingPoints:  []string{},
		Suggestions:    []string{},
		Confidence:     0.5,
		Summary:        "Offline summary of " + firstLine(prompt),
		CommonGround:   []string{},
		Fallacies:      []string{},
	}
	out, err := json.Marshal(reply)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
