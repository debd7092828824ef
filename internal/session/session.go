// Package session composes one discussion session: a phase manager, its
// gates, the progress tracker and the analysis gateway. Each Session owns
// its state; nothing is shared between sessions except the store and the
// gateway passed in through Deps.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/steelman/internal/analysis"
	"github.com/fyrsmithlabs/steelman/internal/apperrors"
	"github.com/fyrsmithlabs/steelman/internal/config"
	"github.com/fyrsmithlabs/steelman/internal/discussion"
	"github.com/fyrsmithlabs/steelman/internal/logging"
	"github.com/fyrsmithlabs/steelman/internal/phase"
	"github.com/fyrsmithlabs/steelman/internal/progress"
	"github.com/fyrsmithlabs/steelman/internal/store"
)

// Analyzer is the analysis surface a session needs. *analysis.Gateway
// implements it.
type Analyzer interface {
	discussion.Analyzer
	Summarize(ctx context.Context, req analysis.Request) (*analysis.Summary, error)
}

// Deps are the collaborators of a session.
type Deps struct {
	Analyzer     Analyzer
	Store        store.Store
	Discussion   config.DiscussionConfig
	SteelManning config.SteelManningConfig
	Logger       *logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d Deps) validate() error {
	if d.Analyzer == nil {
		return errors.New("session: analyzer is required")
	}
	if d.Store == nil {
		return errors.New("session: store is required")
	}
	return nil
}

// Session is one discussion moving through the four phases.
type Session struct {
	id         string
	manager    *phase.Manager
	tracker    *progress.Tracker
	statements *discussion.Service
	steelman   *discussion.SteelManningGate
	analyzer   Analyzer
	now        func() time.Time
	logger     *logging.Logger

	// addMu serializes AddStatement so concurrent callers cannot exceed
	// the quota.
	addMu sync.Mutex

	mu          sync.RWMutex
	issue       *discussion.Issue
	restatement *discussion.Restatement
	discussion  []discussion.Statement
	summary     *analysis.Summary
}

// New creates a session positioned at ISSUE_PROPOSAL. Checkpoints are
// written to deps.Store under the session id.
func New(ctx context.Context, deps Deps, id string) (*Session, error) {
	if err := logging.ValidateID(id, "session id"); err != nil {
		return nil, apperrors.Validation("session.new", "invalid_session", err.Error())
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	logger := logging.OrNop(deps.Logger)
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	tracker := progress.NewTracker(store.WithPrefix(deps.Store, id),
		progress.WithClock(now),
		progress.WithLogger(logger),
	)
	s := &Session{
		id:       id,
		tracker:  tracker,
		analyzer: deps.Analyzer,
		now:      now,
		logger:   logger.Named("session"),
		statements: discussion.NewService(deps.Analyzer, discussion.Options{
			MaxStatementsPerUser: deps.Discussion.MaxStatementsPerUser,
			Participants:         deps.Discussion.Participants,
			MinLength:            deps.Discussion.MinLength,
			MaxLength:            deps.Discussion.MaxLength,
			Now:                  now,
			Logger:               logger,
		}),
		steelman: discussion.NewSteelManningGate(deps.Analyzer, discussion.SteelManningOptions{
			MinLength:           deps.SteelManning.MinLength,
			MaxLength:           deps.SteelManning.MaxLength,
			SimilarityThreshold: deps.SteelManning.SimilarityThreshold,
			Logger:              logger,
		}),
	}
	s.manager = phase.NewManager(
		phase.WithCheckpointer(tracker),
		phase.WithLogger(logger),
	)
	s.manager.RegisterGate(phase.IssueProposal, s.statements.ProposalGate())
	s.manager.RegisterGate(phase.SteelManning, s.steelman.ConfirmationGate())
	s.manager.RegisterGate(phase.Discussion, s.statements.CompletionGate())

	s.logger.Info(s.ctx(ctx), "session created")
	return s, nil
}

// ctx tags ctx with the session id for log correlation.
func (s *Session) ctx(ctx context.Context) context.Context {
	return logging.WithSessionID(ctx, s.id)
}

// expect returns a mismatch error unless p is the current, unfinished phase.
func (s *Session) expect(p phase.Phase) error {
	snap := s.manager.Snapshot()
	if snap.Current != p || snap.Finished {
		return &phase.MismatchError{Current: snap.Current, Attempted: p, Finished: snap.Finished}
	}
	return nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// ProposeIssue records the issue under discussion and completes
// ISSUE_PROPOSAL.
func (s *Session) ProposeIssue(ctx context.Context, userID, title, description string) (*discussion.Issue, error) {
	ctx = logging.WithParticipant(s.ctx(ctx), userID)
	if err := logging.ValidateID(userID, "user id"); err != nil {
		return nil, apperrors.Validation("session.propose", "invalid_user", err.Error())
	}

	issue := &discussion.Issue{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		ProposedBy:  userID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.manager.Complete(ctx, phase.IssueProposal, issue); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.issue = issue
	s.mu.Unlock()
	out := *issue
	return &out, nil
}

// EvaluateRestatement has userID's restatement of the proposed issue
// analyzed. An evaluated restatement replaces any earlier one and waits for
// the proposer's confirmation.
func (s *Session) EvaluateRestatement(ctx context.Context, userID, restatement string) (*discussion.Restatement, error) {
	ctx = logging.WithParticipant(s.ctx(ctx), userID)
	if err := s.expect(phase.SteelManning); err != nil {
		return nil, err
	}
	issue := s.Issue()
	if issue == nil {
		return nil, apperrors.New(apperrors.KindState, "session.restate", "no issue has been proposed")
	}
	if userID == issue.ProposedBy {
		return nil, apperrors.Validation("session.restate", "own_statement",
			"the proposer cannot restate their own issue")
	}

	result, err := s.steelman.Evaluate(ctx, issue.Text(), restatement)
	if err != nil {
		return nil, err
	}
	r := &discussion.Restatement{
		Original:       issue.Text(),
		OriginalAuthor: issue.ProposedBy,
		Restatement:    strings.TrimSpace(restatement),
		UserID:         userID,
		Analysis:       result,
	}

	s.mu.Lock()
	s.restatement = r
	s.mu.Unlock()

	if err := s.tracker.SaveDraft(ctx, phase.SteelManning, r); err != nil {
		s.logger.Warn(ctx, "draft save failed", zap.Error(err))
	}

	out := *r
	return &out, nil
}

// ConfirmRestatement records the original author's confirmation of the
// pending restatement and completes STEEL_MANNING.
func (s *Session) ConfirmRestatement(ctx context.Context, confirmerID string) error {
	const op = "session.confirm"
	ctx = logging.WithParticipant(s.ctx(ctx), confirmerID)
	if err := s.expect(phase.SteelManning); err != nil {
		return err
	}

	s.mu.RLock()
	pending := s.restatement
	s.mu.RUnlock()
	if pending == nil {
		return apperrors.Validation(op, "not_confirmed", "no restatement is waiting for confirmation")
	}
	if confirmerID != pending.OriginalAuthor {
		return apperrors.Validation(op, "not_confirmed", "only the original author can confirm a restatement")
	}

	confirmed := *pending
	confirmed.Confirmed = true
	if err := s.manager.Complete(ctx, phase.SteelManning, &confirmed); err != nil {
		return err
	}

	s.mu.Lock()
	s.restatement = &confirmed
	s.mu.Unlock()
	return nil
}

// RejectRestatement discards the pending restatement on the original
// author's behalf, whatever the analysis concluded. Another participant can
// then submit a new one.
func (s *Session) RejectRestatement(ctx context.Context, proposerID string) error {
	const op = "session.reject"
	ctx = logging.WithParticipant(s.ctx(ctx), proposerID)
	if err := s.expect(phase.SteelManning); err != nil {
		return err
	}

	s.mu.Lock()
	pending := s.restatement
	if pending == nil {
		s.mu.Unlock()
		return apperrors.Validation(op, "not_confirmed", "no restatement is waiting for confirmation")
	}
	if proposerID != pending.OriginalAuthor {
		s.mu.Unlock()
		return apperrors.Validation(op, "not_confirmed", "only the original author can reject a restatement")
	}
	s.restatement = nil
	s.mu.Unlock()

	if err := s.tracker.DeleteDraft(ctx, phase.SteelManning); err != nil {
		s.logger.Warn(ctx, "draft delete failed", zap.Error(err))
	}
	s.logger.Info(ctx, "restatement rejected", zap.String("restated_by", pending.UserID))
	return nil
}

// AddStatement adds a DISCUSSION statement by userID. When the last
// statement slot is filled the phase completes.
func (s *Session) AddStatement(ctx context.Context, userID, content string) (*discussion.Statement, error) {
	ctx = logging.WithParticipant(s.ctx(ctx), userID)

	s.addMu.Lock()
	defer s.addMu.Unlock()

	if err := s.expect(phase.Discussion); err != nil {
		return nil, err
	}

	existing := s.Statements()
	st, err := s.statements.AddStatement(ctx, userID, content, existing)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.discussion = append(s.discussion, *st)
	all := append([]discussion.Statement(nil), s.discussion...)
	s.mu.Unlock()

	if err := s.tracker.SaveDraft(ctx, phase.Discussion, all); err != nil {
		s.logger.Warn(ctx, "draft save failed", zap.Error(err))
	}

	if s.statements.Quota().IsComplete(all) {
		if err := s.manager.Complete(ctx, phase.Discussion, all); err != nil {
			return st, fmt.Errorf("complete discussion: %w", err)
		}
	}
	return st, nil
}

// Summarize asks for the closing analysis and completes SUMMARY.
func (s *Session) Summarize(ctx context.Context) (*analysis.Summary, error) {
	ctx = s.ctx(ctx)
	if err := s.expect(phase.Summary); err != nil {
		return nil, err
	}
	issue := s.Issue()
	if issue == nil {
		return nil, apperrors.New(apperrors.KindState, "session.summarize", "no issue has been proposed")
	}

	summary, err := s.analyzer.Summarize(ctx, analysis.Request{
		TemplateID: analysis.TemplateDiscussionSummary,
		Params: map[string]string{
			"issue":      issue.Text(),
			"statements": formatStatements(s.Statements()),
		},
	})
	if err != nil {
		return nil, err
	}
	if err := s.manager.Complete(ctx, phase.Summary, summary); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()
	return summary, nil
}

func formatStatements(statements []discussion.Statement) string {
	var b strings.Builder
	for i, st := range statements {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, st.UserID, st.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Statements returns a copy of the accepted statements.
func (s *Session) Statements() []discussion.Statement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]discussion.Statement(nil), s.discussion...)
}

// Remaining returns how many statements are still expected.
func (s *Session) Remaining() int {
	return s.statements.Quota().Remaining(s.Statements())
}

// Issue returns the proposed issue, or nil.
func (s *Session) Issue() *discussion.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.issue == nil {
		return nil
	}
	out := *s.issue
	return &out
}

// Restatement returns the latest restatement, or nil.
func (s *Session) Restatement() *discussion.Restatement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.restatement == nil {
		return nil
	}
	out := *s.restatement
	return &out
}

// Summary returns the closing analysis, or nil before SUMMARY completes.
func (s *Session) Summary() *analysis.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Snapshot returns the phase state.
func (s *Session) Snapshot() phase.Snapshot {
	return s.manager.Snapshot()
}

// Subscribe registers fn for phase transitions. See phase.Manager.Subscribe.
func (s *Session) Subscribe(fn func(phase.Snapshot)) (unsubscribe func()) {
	return s.manager.Subscribe(fn)
}

// Discard removes the session's checkpoints and drafts.
func (s *Session) Discard(ctx context.Context) error {
	return s.tracker.Clear(s.ctx(ctx))
}
