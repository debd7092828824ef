package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/steelman/internal/analysis"
	"github.com/fyrsmithlabs/steelman/internal/discussion"
	"github.com/fyrsmithlabs/steelman/internal/phase"
	"github.com/fyrsmithlabs/steelman/internal/store"
)

func TestResume_EmptySessionStartsAtIssueProposal(t *testing.T) {
	s, err := Resume(context.Background(), newDeps(t, analysis.OfflineProvider{}, store.NewMemory()), "fresh")
	require.NoError(t, err)
	assert.Equal(t, phase.IssueProposal, s.Snapshot().Current)
	assert.Nil(t, s.Issue())
}

func TestResume_RestoresPhaseAndDraft(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	s, err := New(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-1")
	require.NoError(t, err)
	advanceToDiscussion(t, s)
	first, err := s.AddStatement(ctx, "alice", statementFor("alice", 0))
	require.NoError(t, err)
	_, err = s.AddStatement(ctx, "bob", statementFor("bob", 0))
	require.NoError(t, err)

	resumed, err := Resume(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-1")
	require.NoError(t, err)

	snap := resumed.Snapshot()
	assert.Equal(t, phase.Discussion, snap.Current)
	assert.True(t, snap.IsComplete(phase.IssueProposal))
	assert.True(t, snap.IsComplete(phase.SteelManning))

	issue := resumed.Issue()
	require.NotNil(t, issue)
	assert.Equal(t, issueTitle, issue.Title)
	assert.Equal(t, "alice", issue.ProposedBy)

	r := resumed.Restatement()
	require.NotNil(t, r)
	assert.True(t, r.Confirmed)
	assert.Equal(t, "bob", r.UserID)

	statements := resumed.Statements()
	require.Len(t, statements, 2)
	assert.Equal(t, first.ID, statements[0].ID)
	assert.Equal(t, 4, resumed.Remaining())

	_, err = resumed.AddStatement(ctx, "alice", statementFor("alice", 1))
	require.NoError(t, err)
	assert.Len(t, resumed.Statements(), 3)
}

func TestResume_PendingRestatementCanBeConfirmed(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	s, err := New(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-1")
	require.NoError(t, err)
	_, err = s.ProposeIssue(ctx, "alice", issueTitle, issueDetail)
	require.NoError(t, err)
	evaluated, err := s.EvaluateRestatement(ctx, "bob", restatement)
	require.NoError(t, err)

	resumed, err := Resume(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-1")
	require.NoError(t, err)
	assert.Equal(t, phase.SteelManning, resumed.Snapshot().Current)

	r := resumed.Restatement()
	require.NotNil(t, r)
	assert.Equal(t, "bob", r.UserID)
	assert.Equal(t, evaluated.Restatement, r.Restatement)
	assert.False(t, r.Confirmed)
	require.NotNil(t, r.Analysis)
	assert.True(t, r.Analysis.IsAccurate)

	require.NoError(t, resumed.ConfirmRestatement(ctx, "alice"))
	assert.Equal(t, phase.Discussion, resumed.Snapshot().Current)

	again, err := Resume(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-1")
	require.NoError(t, err)
	assert.Equal(t, phase.Discussion, again.Snapshot().Current)
	require.NotNil(t, again.Restatement())
	assert.True(t, again.Restatement().Confirmed)
}

func TestResume_RejectedRestatementIsNotRestored(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	s, err := New(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-1")
	require.NoError(t, err)
	_, err = s.ProposeIssue(ctx, "alice", issueTitle, issueDetail)
	require.NoError(t, err)
	_, err = s.EvaluateRestatement(ctx, "bob", restatement)
	require.NoError(t, err)
	require.NoError(t, s.RejectRestatement(ctx, "alice"))

	resumed, err := Resume(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-1")
	require.NoError(t, err)
	assert.Equal(t, phase.SteelManning, resumed.Snapshot().Current)
	assert.Nil(t, resumed.Restatement())
}

func TestResume_FinishedSession(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	s, err := New(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-1")
	require.NoError(t, err)
	advanceToDiscussion(t, s)
	for i := 0; i < 3; i++ {
		for _, user := range []string{"alice", "bob"} {
			_, err := s.AddStatement(ctx, user, statementFor(user, i))
			require.NoError(t, err)
		}
	}
	summary, err := s.Summarize(ctx)
	require.NoError(t, err)

	resumed, err := Resume(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-1")
	require.NoError(t, err)
	assert.True(t, resumed.Snapshot().Finished)
	assert.Len(t, resumed.Statements(), 6)
	require.NotNil(t, resumed.Summary())
	assert.Equal(t, summary.Summary, resumed.Summary().Summary)
}

func TestResume_CompletesDiscussionFromFullDraft(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	s, err := New(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-1")
	require.NoError(t, err)
	advanceToDiscussion(t, s)

	var draft []discussion.Statement
	for i := 0; i < 3; i++ {
		for _, user := range []string{"alice", "bob"} {
			draft = append(draft, discussion.Statement{ID: user + string(rune('0'+i)), UserID: user, Content: statementFor(user, i)})
		}
	}
	require.NoError(t, s.tracker.SaveDraft(ctx, phase.Discussion, draft))

	resumed, err := Resume(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-1")
	require.NoError(t, err)
	assert.Equal(t, phase.Summary, resumed.Snapshot().Current)
	assert.Len(t, resumed.Statements(), 6)
}

func TestResume_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	s, err := New(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-a")
	require.NoError(t, err)
	_, err = s.ProposeIssue(ctx, "alice", issueTitle, issueDetail)
	require.NoError(t, err)

	other, err := Resume(ctx, newDeps(t, analysis.OfflineProvider{}, mem), "session-b")
	require.NoError(t, err)
	assert.Equal(t, phase.IssueProposal, other.Snapshot().Current)
}
