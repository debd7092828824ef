package discussion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func statementsBy(users ...string) []Statement {
	out := make([]Statement, len(users))
	for i, u := range users {
		out[i] = Statement{UserID: u, Content: "statement"}
	}
	return out
}

func TestQuotaTracker_CanAddStatement(t *testing.T) {
	q := NewQuotaTracker(0, 0)

	assert.False(t, q.CanAddStatement("alice", statementsBy("alice", "alice", "alice")))
	assert.True(t, q.CanAddStatement("alice", statementsBy("alice", "alice")))
	assert.True(t, q.CanAddStatement("bob", statementsBy("alice", "alice", "alice")))
}

func TestQuotaTracker_Remaining(t *testing.T) {
	q := NewQuotaTracker(0, 0)

	assert.Equal(t, 6, q.Remaining(nil))
	assert.Equal(t, 3, q.Remaining(statementsBy("alice", "bob", "alice")))
	assert.Equal(t, 0, q.Remaining(statementsBy("a", "b", "a", "b", "a", "b", "a")), "floored at zero")
}

func TestQuotaTracker_IsComplete(t *testing.T) {
	q := NewQuotaTracker(1, 2)
	assert.False(t, q.IsComplete(statementsBy("alice")))
	assert.True(t, q.IsComplete(statementsBy("alice", "bob")))
	assert.Equal(t, 2, q.Total())
}
