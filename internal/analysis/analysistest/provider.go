// Package analysistest provides a scripted analysis.Provider for tests.
package analysistest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/steelman/internal/analysis"
)

// Reply is one scripted provider answer.
type Reply struct {
	Text string
	Err  error
}

// Provider replays scripted replies in order, then falls back to Default.
// It records every prompt it receives. Safe for concurrent use.
type Provider struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
	configs []analysis.GenerationConfig

	// Default answers once the script is exhausted. When nil, a
	// favourable Result is returned.
	Default func(prompt string) (string, error)
}

// New creates a provider with the given script.
func New(replies ...Reply) *Provider {
	return &Provider{replies: replies}
}

// Push appends replies to the script.
func (p *Provider) Push(replies ...Reply) {
	p.mu.Lock()
	p.replies = append(p.replies, replies...)
	p.mu.Unlock()
}

// GenerateContent implements analysis.Provider.
func (p *Provider) GenerateContent(ctx context.Context, prompt string, cfg analysis.GenerationConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.configs = append(p.configs, cfg)
	if len(p.replies) > 0 {
		r := p.replies[0]
		p.replies = p.replies[1:]
		p.mu.Unlock()
		return r.Text, r.Err
	}
	def := p.Default
	p.mu.Unlock()

	if def != nil {
		return def(prompt)
	}
	return JSON(analysis.Result{IsAccurate: true, IsConstructive: true, Confidence: 0.9}), nil
}

// Calls returns how many times GenerateContent ran.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

// Prompts returns the prompts received so far.
func (p *Provider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

// Configs returns the generation configs received so far.
func (p *Provider) Configs() []analysis.GenerationConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]analysis.GenerationConfig(nil), p.configs...)
}

// CallsContaining counts prompts that contain substr.
func (p *Provider) CallsContaining(substr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, pr := range p.prompts {
		if strings.Contains(pr, substr) {
			n++
		}
	}
	return n
}

// JSON marshals v, panicking on failure.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// Verdict is a shorthand for a scripted Result reply.
func Verdict(accurate, constructive bool) Reply {
	return Reply{Text: JSON(analysis.Result{
		IsAccurate:     accurate,
		IsConstructive: constructive,
		MissingPoints:  []string{},
		Suggestions:    []string{},
		Confidence:     0.8,
	})}
}
