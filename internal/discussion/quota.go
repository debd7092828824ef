package discussion

// Quota defaults.
const (
	DefaultMaxStatementsPerUser = 3
	DefaultParticipants         = 2
)

// QuotaTracker enforces the per-participant statement cap.
type QuotaTracker struct {
	MaxPerUser   int
	Participants int
}

// NewQuotaTracker returns a tracker. Non-positive values select the
// defaults.
func NewQuotaTracker(maxPerUser, participants int) QuotaTracker {
	if maxPerUser <= 0 {
		maxPerUser = DefaultMaxStatementsPerUser
	}
	if participants <= 0 {
		participants = DefaultParticipants
	}
	return QuotaTracker{MaxPerUser: maxPerUser, Participants: participants}
}

// CanAddStatement reports whether userID is below the cap.
func (q QuotaTracker) CanAddStatement(userID string, statements []Statement) bool {
	return CountBy(statements, userID) < q.MaxPerUser
}

// Total is the number of statements that completes the discussion.
func (q QuotaTracker) Total() int {
	return q.MaxPerUser * q.Participants
}

// Remaining returns how many statements are still expected, never below zero.
func (q QuotaTracker) Remaining(statements []Statement) int {
	if r := q.Total() - len(statements); r > 0 {
		return r
	}
	return 0
}

// IsComplete reports whether every statement slot is used.
func (q QuotaTracker) IsComplete(statements []Statement) bool {
	return q.Remaining(statements) == 0
}
