package discussion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/steelman/internal/analysis"
	"github.com/fyrsmithlabs/steelman/internal/apperrors"
	"github.com/fyrsmithlabs/steelman/internal/logging"
	"github.com/fyrsmithlabs/steelman/internal/phase"
)

var errNoAnalyzer = errors.New("discussion: analyzer is required")

// Restatement bounds, in runes, and the minimum word overlap with the
// original.
const (
	DefaultRestatementMinLength = 20
	DefaultRestatementMaxLength = 1000
	DefaultSimilarityThreshold  = 0.3
)

// Analyzer runs a prompt template against the analysis provider.
// *analysis.Gateway implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// SteelManningOptions configures a SteelManningGate. Zero values select
// defaults.
type SteelManningOptions struct {
	MinLength           int
	MaxLength           int
	SimilarityThreshold float64
	Logger              *logging.Logger
}

// SteelManningGate checks that a restatement fairly represents the original
// position before it can be confirmed.
type SteelManningGate struct {
	analyzer  Analyzer
	minLength int
	maxLength int
	threshold float64
	logger    *logging.Logger
}

// NewSteelManningGate creates a gate that asks analyzer to judge
// restatements that pass the local checks.
func NewSteelManningGate(analyzer Analyzer, opts SteelManningOptions) *SteelManningGate {
	g := &SteelManningGate{
		analyzer:  analyzer,
		minLength: opts.MinLength,
		maxLength: opts.MaxLength,
		threshold: opts.SimilarityThreshold,
		logger:    logging.OrNop(opts.Logger).Named("steelmanning"),
	}
	if g.minLength <= 0 {
		g.minLength = DefaultRestatementMinLength
	}
	if g.maxLength <= 0 {
		g.maxLength = DefaultRestatementMaxLength
	}
	if g.threshold <= 0 {
		g.threshold = DefaultSimilarityThreshold
	}
	return g
}

// Evaluate runs the local checks on restatement and, if they pass, the
// steelManning analysis. Local failures are validation errors and never
// reach the provider.
func (g *SteelManningGate) Evaluate(ctx context.Context, original, restatement string) (*analysis.Result, error) {
	if err := g.precheck(original, restatement); err != nil {
		g.logger.Debug(ctx, "restatement rejected locally", zap.String("code", apperrors.CodeOf(err)))
		return nil, err
	}
	if g.analyzer == nil {
		return nil, errNoAnalyzer
	}
	result, err := g.analyzer.Analyze(ctx, analysis.Request{
		TemplateID: analysis.TemplateSteelManning,
		Params: map[string]string{
			"original":    original,
			"restatement": restatement,
		},
	})
	if err != nil {
		return nil, err
	}
	g.logger.Info(ctx, "restatement evaluated",
		zap.Bool("accurate", result.IsAccurate),
		zap.Float64("confidence", result.Confidence),
	)
	return result, nil
}

func (g *SteelManningGate) precheck(original, restatement string) error {
	const op = "discussion.steelman"

	if normalize(original) == normalize(restatement) {
		return apperrors.Validation(op, "identical", "restatement is identical to the original")
	}
	text := strings.TrimSpace(restatement)
	n := utf8.RuneCountInString(text)
	if n < g.minLength {
		return apperrors.Validation(op, "too_short",
			fmt.Sprintf("restatement is %d characters, minimum is %d", n, g.minLength))
	}
	if n > g.maxLength {
		return apperrors.Validation(op, "too_long",
			fmt.Sprintf("restatement is %d characters, maximum is %d", n, g.maxLength))
	}
	if sim := Similarity(original, restatement); sim < g.threshold {
		return apperrors.Validation(op, "low_similarity",
			fmt.Sprintf("restatement shares too little with the original (%.2f < %.2f)", sim, g.threshold))
	}
	return nil
}

// ConfirmationGate returns the STEEL_MANNING completion gate. The payload
// must be a *Restatement by someone other than the original author that
// has been analyzed as accurate and confirmed.
func (g *SteelManningGate) ConfirmationGate() phase.Gate {
	return phase.NewGate("steelmanning.confirmed", func(_ context.Context, data any) error {
		const op = "discussion.confirm"

		r, ok := data.(*Restatement)
		if !ok || r == nil {
			return apperrors.Validation(op, "not_confirmed",
				fmt.Sprintf("expected a restatement, got %T", data))
		}
		if r.OriginalAuthor != "" && r.UserID == r.OriginalAuthor {
			return apperrors.Validation(op, "own_statement", "participants cannot restate their own position")
		}
		if r.Analysis == nil || !r.Analysis.IsAccurate {
			return apperrors.Validation(op, "not_confirmed", "restatement has not been judged accurate")
		}
		if !r.Confirmed {
			return apperrors.Validation(op, "not_confirmed", "restatement has not been confirmed")
		}
		return nil
	})
}

// Similarity is the intersection over union of the distinct case-folded
// words of a and b.
func Similarity(a, b string) float64 {
	wa, wb := words(a), words(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(wa)+len(wb)-inter)
}

func words(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
