package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
	"github.com/fyrsmithlabs/steelman/internal/phase"
)

// setupEnv points configuration at a temporary home with a SQLite store and
// the offline provider.
func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("STEELMAN_ANALYSIS_PROVIDER", "fake")
	t.Setenv("STEELMAN_STORE_DRIVER", "sqlite")
	t.Setenv("STEELMAN_STORE_PATH", filepath.Join(dir, "steelman.db"))
	t.Setenv("STEELMAN_LOGGING_LEVEL", "error")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestCLI_FullSession(t *testing.T) {
	setupEnv(t)
	s := []string{"--session", "cli-1"}

	out := mustRun(t, append([]string{"propose", "--user", "alice",
		"--title", "Remote work improves focus",
		"--description", "engineers avoid office interruptions at home"}, s...)...)
	assert.Contains(t, out, "Issue proposed by alice")
	assert.Contains(t, out, "STEEL_MANNING")

	out = mustRun(t, append([]string{"restate", "--user", "bob",
		"You think remote work improves focus since engineers avoid interruptions at home"}, s...)...)
	assert.Contains(t, out, "judged accurate")

	out = mustRun(t, append([]string{"confirm", "--user", "alice"}, s...)...)
	assert.Contains(t, out, "DISCUSSION")

	for i := 0; i < 3; i++ {
		for _, user := range []string{"alice", "bob"} {
			mustRun(t, append([]string{"say", "--user", user,
				user + " makes a constructive point about remote work"}, s...)...)
		}
	}

	out = mustRun(t, append([]string{"status", "--json"}, s...)...)
	var st status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, phase.Summary, st.Phase)
	assert.Len(t, st.Statements, 6)
	assert.Zero(t, st.Remaining)

	out = mustRun(t, append([]string{"summarize"}, s...)...)
	assert.Contains(t, out, "Offline summary")

	out = mustRun(t, append([]string{"status"}, s...)...)
	assert.Contains(t, out, "(100%)")

	mustRun(t, append([]string{"reset"}, s...)...)
	out = mustRun(t, append([]string{"status", "--json"}, s...)...)
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, phase.IssueProposal, st.Phase)
}

func TestCLI_RejectThenRestateAgain(t *testing.T) {
	setupEnv(t)
	s := []string{"--session", "cli-4"}
	restatement := "You think remote work improves focus since engineers avoid interruptions at home"

	mustRun(t, append([]string{"propose", "--user", "alice",
		"--title", "Remote work improves focus",
		"--description", "engineers avoid office interruptions at home"}, s...)...)
	mustRun(t, append([]string{"restate", "--user", "bob", restatement}, s...)...)

	_, err := run(t, append([]string{"reject", "--user", "bob"}, s...)...)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	out := mustRun(t, append([]string{"reject", "--user", "alice"}, s...)...)
	assert.Contains(t, out, "Restatement rejected.")
	assert.Contains(t, out, "STEEL_MANNING")

	_, err = run(t, append([]string{"confirm", "--user", "alice"}, s...)...)
	assert.Equal(t, "not_confirmed", apperrors.CodeOf(err))

	mustRun(t, append([]string{"restate", "--user", "bob", restatement}, s...)...)
	out = mustRun(t, append([]string{"confirm", "--user", "alice"}, s...)...)
	assert.Contains(t, out, "DISCUSSION")
}

func TestCLI_OutOfOrderCommand(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "say", "--session", "cli-2", "--user", "alice", "A statement before any issue exists")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPhaseMismatch)
}

func TestCLI_ValidationErrorHasUserMessage(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "propose", "--session", "cli-3", "--user", "alice", "--title", "Hi")
	require.Error(t, err)
	assert.Equal(t, "Statement is too short. Please add more detail.", apperrors.UserMessage(err))
}

func TestCLI_SessionRequired(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "status")
	assert.ErrorContains(t, err, "--session is required")
}

func TestCLI_Templates(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "templates")
	assert.Equal(t, "discussionSummary\nstatementAnalysis\nsteelManning\n", out)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hello w...", truncate("hello world!", 10))
	assert.Equal(t, "ééé...", truncate("éééééééé", 6))
}
