package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/steelman/internal/analysis"
	"github.com/fyrsmithlabs/steelman/internal/discussion"
	"github.com/fyrsmithlabs/steelman/internal/phase"
	"github.com/fyrsmithlabs/steelman/internal/progress"
)

// Resume rebuilds session id from its checkpoints. Completed phases and
// their payloads are restored, along with the pending restatement during
// STEEL_MANNING or the draft statements during DISCUSSION. A session with no checkpoints resumes at
// ISSUE_PROPOSAL.
func Resume(ctx context.Context, deps Deps, id string) (*Session, error) {
	s, err := New(ctx, deps, id)
	if err != nil {
		return nil, err
	}
	ctx = s.ctx(ctx)

	checkpoints, err := s.tracker.Completed(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume session %s: %w", id, err)
	}

	completed := make([]phase.Phase, 0, len(checkpoints))
	data := make(map[phase.Phase]any, len(checkpoints))
	for _, cp := range checkpoints {
		v, err := s.restorePayload(cp)
		if err != nil {
			return nil, fmt.Errorf("resume session %s: %w", id, err)
		}
		completed = append(completed, cp.Phase)
		if v != nil {
			data[cp.Phase] = v
		}
	}
	if err := s.manager.Restore(completed, data); err != nil {
		return nil, fmt.Errorf("resume session %s: %w", id, err)
	}

	switch s.manager.Current() {
	case phase.SteelManning:
		if err := s.restoreRestatement(ctx); err != nil {
			return nil, fmt.Errorf("resume session %s: %w", id, err)
		}
	case phase.Discussion:
		if err := s.restoreDraft(ctx); err != nil {
			return nil, fmt.Errorf("resume session %s: %w", id, err)
		}
	}

	s.logger.Info(ctx, "session resumed",
		zap.String("phase", string(s.manager.Current())),
		zap.Int("completed", len(completed)),
		zap.Int("statements", len(s.Statements())),
	)
	return s, nil
}

// restorePayload decodes a checkpoint into the payload type its phase
// completes with and records it on the session.
func (s *Session) restorePayload(cp *progress.Checkpoint) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cp.Phase {
	case phase.IssueProposal:
		var issue discussion.Issue
		if err := cp.Decode(&issue); err != nil {
			return nil, err
		}
		s.issue = &issue
		return &issue, nil
	case phase.SteelManning:
		var r discussion.Restatement
		if err := cp.Decode(&r); err != nil {
			return nil, err
		}
		s.restatement = &r
		return &r, nil
	case phase.Discussion:
		var statements []discussion.Statement
		if err := cp.Decode(&statements); err != nil {
			return nil, err
		}
		s.discussion = statements
		return append([]discussion.Statement(nil), statements...), nil
	case phase.Summary:
		var summary analysis.Summary
		if err := cp.Decode(&summary); err != nil {
			return nil, err
		}
		s.summary = &summary
		return &summary, nil
	default:
		return nil, fmt.Errorf("unknown checkpoint phase %q", cp.Phase)
	}
}

// restoreRestatement reloads a restatement that was evaluated but not yet
// confirmed or rejected.
func (s *Session) restoreRestatement(ctx context.Context) error {
	var r discussion.Restatement
	found, err := s.tracker.LoadDraft(ctx, phase.SteelManning, &r)
	if err != nil || !found {
		return err
	}
	s.mu.Lock()
	s.restatement = &r
	s.mu.Unlock()
	return nil
}

// restoreDraft reloads in-progress statements. A draft that already fills
// the quota means the process stopped before DISCUSSION was checkpointed,
// so the phase is completed now.
func (s *Session) restoreDraft(ctx context.Context) error {
	var statements []discussion.Statement
	found, err := s.tracker.LoadDraft(ctx, phase.Discussion, &statements)
	if err != nil || !found {
		return err
	}

	s.mu.Lock()
	s.discussion = statements
	s.mu.Unlock()

	if s.statements.Quota().IsComplete(statements) {
		return s.manager.Complete(ctx, phase.Discussion, append([]discussion.Statement(nil), statements...))
	}
	return nil
}
