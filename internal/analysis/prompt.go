package analysis

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
)

//go:embed templates/default.yaml
var defaultTemplates []byte

const opPrompt = "analysis.prompt"

var (
	placeholderPattern = regexp.MustCompile(`\$\{(\w+)\}`)

	schema = validator.New()
)

// Template is a named prompt with ${name} placeholders.
type Template struct {
	ID              string   `yaml:"id" validate:"required"`
	Text            string   `yaml:"template" validate:"required"`
	Parameters      []string `yaml:"parameters" validate:"dive,required"`
	MaxOutputTokens int32    `yaml:"max_tokens" validate:"gte=0"`
	Temperature     *float32 `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadTemplates decodes a YAML document with a top-level templates list.
func LoadTemplates(r io.Reader) ([]Template, error) {
	var f templateFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}
	for i := range f.Templates {
		if err := schema.Struct(&f.Templates[i]); err != nil {
			return nil, fmt.Errorf("template %d (%q) invalid: %w", i, f.Templates[i].ID, err)
		}
	}
	return f.Templates, nil
}

// DefaultTemplates returns the built-in templates.
func DefaultTemplates() []Template {
	templates, err := LoadTemplates(bytes.NewReader(defaultTemplates))
	if err != nil {
		panic(fmt.Sprintf("analysis: embedded templates: %v", err))
	}
	return templates
}

// PromptBuilder renders templates by ID. Safe for concurrent use.
type PromptBuilder struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewPromptBuilder creates a builder holding the built-in templates plus
// extra. Extra templates replace built-ins with the same ID.
func NewPromptBuilder(extra ...Template) *PromptBuilder {
	b := &PromptBuilder{templates: make(map[string]Template)}
	for _, t := range DefaultTemplates() {
		b.templates[t.ID] = t
	}
	for _, t := range extra {
		b.templates[t.ID] = t
	}
	return b
}

// Register adds or replaces a template.
func (b *PromptBuilder) Register(t Template) error {
	if err := schema.Struct(&t); err != nil {
		return &apperrors.Error{Kind: apperrors.KindPrompt, Op: opPrompt, Msg: "invalid template", Err: err}
	}
	b.mu.Lock()
	b.templates[t.ID] = t
	b.mu.Unlock()
	return nil
}

// IDs returns the registered template IDs in sorted order.
func (b *PromptBuilder) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.templates))
	for id := range b.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Build renders template id with params. Every declared parameter must be
// present and non-blank. Placeholders without a value render empty.
func (b *PromptBuilder) Build(id string, params map[string]string) (string, Template, error) {
	b.mu.RLock()
	t, ok := b.templates[id]
	b.mu.RUnlock()
	if !ok {
		return "", Template{}, &apperrors.Error{
			Kind: apperrors.KindPrompt,
			Op:   opPrompt,
			Code: "unknown_template",
			Msg:  fmt.Sprintf("template %s not found", id),
		}
	}

	var missing []string
	for _, p := range t.Parameters {
		if strings.TrimSpace(params[p]) == "" {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return "", Template{}, &apperrors.Error{
			Kind: apperrors.KindPrompt,
			Op:   opPrompt,
			Code: "missing_parameter",
			Msg:  fmt.Sprintf("template %s: missing parameters %s", id, strings.Join(missing, ", ")),
		}
	}

	out := placeholderPattern.ReplaceAllStringFunc(t.Text, func(m string) string {
		return params[placeholderPattern.FindStringSubmatch(m)[1]]
	})
	return out, t, nil
}
