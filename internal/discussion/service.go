package discussion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/steelman/internal/analysis"
	"github.com/fyrsmithlabs/steelman/internal/apperrors"
	"github.com/fyrsmithlabs/steelman/internal/logging"
	"github.com/fyrsmithlabs/steelman/internal/phase"
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	MaxStatementsPerUser int
	Participants         int
	MinLength            int
	MaxLength            int
	Now                  func() time.Time
	Logger               *logging.Logger
}

// Service accepts statements into a discussion.
type Service struct {
	analyzer  Analyzer
	validator Validator
	quota     QuotaTracker
	now       func() time.Time
	logger    *logging.Logger
}

// NewService creates a statement service backed by analyzer.
func NewService(analyzer Analyzer, opts Options) *Service {
	s := &Service{
		analyzer:  analyzer,
		validator: NewValidator(opts.MinLength, opts.MaxLength),
		quota:     NewQuotaTracker(opts.MaxStatementsPerUser, opts.Participants),
		now:       opts.Now,
		logger:    logging.OrNop(opts.Logger).Named("discussion"),
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Validator returns the statement validator.
func (s *Service) Validator() Validator { return s.validator }

// Quota returns the quota tracker.
func (s *Service) Quota() QuotaTracker { return s.quota }

// AddStatement checks the quota, validates content and has it analyzed.
// Statements judged not constructive are rejected. existing is not
// modified; the caller appends the returned statement.
func (s *Service) AddStatement(ctx context.Context, userID, content string, existing []Statement) (*Statement, error) {
	const op = "discussion.add_statement"

	if err := logging.ValidateID(userID, "user id"); err != nil {
		return nil, apperrors.Validation(op, "invalid_user", err.Error())
	}
	ctx = logging.WithParticipant(ctx, userID)

	if !s.quota.CanAddStatement(userID, existing) {
		s.logger.Info(ctx, "statement quota exhausted", zap.Int("max_per_user", s.quota.MaxPerUser))
		return nil, apperrors.Validation(op, "quota_exceeded",
			fmt.Sprintf("participant has already made %d statements", s.quota.MaxPerUser))
	}
	if err := s.validator.Validate(content); err != nil {
		return nil, err
	}
	if s.analyzer == nil {
		return nil, errNoAnalyzer
	}

	content = strings.TrimSpace(content)
	result, err := s.analyzer.Analyze(ctx, analysis.Request{
		TemplateID: analysis.TemplateStatementAnalysis,
		Params:     map[string]string{"statement": content},
	})
	if err != nil {
		return nil, fmt.Errorf("analyze statement: %w", err)
	}
	if !result.IsConstructive {
		msg := "statement is not constructive"
		if len(result.Suggestions) > 0 {
			msg += ": " + strings.Join(result.Suggestions, "; ")
		}
		s.logger.Info(ctx, "statement rejected as not constructive",
			zap.Strings("suggestions", result.Suggestions))
		return nil, apperrors.Validation(op, "not_constructive", msg)
	}

	st := &Statement{
		ID:        uuid.NewString(),
		Content:   content,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
		Analysis:  result,
	}
	s.logger.Info(ctx, "statement accepted",
		zap.String("statement_id", st.ID),
		zap.Int("remaining", s.quota.Remaining(existing)-1),
	)
	return st, nil
}

// CompletionGate returns the DISCUSSION completion gate. The payload must be
// the full statement list and must fill every participant's quota.
func (s *Service) CompletionGate() phase.Gate {
	return phase.NewGate("discussion.quota_filled", func(_ context.Context, data any) error {
		const op = "discussion.complete"

		statements, ok := data.([]Statement)
		if !ok {
			return apperrors.Validation(op, "incomplete", fmt.Sprintf("expected statements, got %T", data))
		}
		if r := s.quota.Remaining(statements); r > 0 {
			return apperrors.Validation(op, "incomplete", fmt.Sprintf("%d statements remaining", r))
		}
		return nil
	})
}

// ProposalGate returns the ISSUE_PROPOSAL completion gate. The payload must
// be an *Issue whose text passes the statement validator.
func (s *Service) ProposalGate() phase.Gate {
	return phase.NewGate("discussion.issue_valid", func(_ context.Context, data any) error {
		const op = "discussion.propose"

		issue, ok := data.(*Issue)
		if !ok || issue == nil {
			return apperrors.Validation(op, "empty", fmt.Sprintf("expected an issue, got %T", data))
		}
		if strings.TrimSpace(issue.Title) == "" {
			return apperrors.Validation(op, "empty", "issue title cannot be empty")
		}
		return s.validator.Validate(issue.Text())
	})
}
