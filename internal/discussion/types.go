package discussion

import (
	"time"

	"github.com/fyrsmithlabs/steelman/internal/analysis"
)

// Issue is the topic proposed in the ISSUE_PROPOSAL phase.
type Issue struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ProposedBy  string    `json:"proposedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Text is the issue as shown to participants and the analysis provider.
func (i Issue) Text() string {
	if i.Description == "" {
		return i.Title
	}
	return i.Title + ": " + i.Description
}

// Statement is one participant contribution in the DISCUSSION phase.
// Statements are values; once accepted they are never modified.
type Statement struct {
	ID        string           `json:"id"`
	Content   string           `json:"content"`
	UserID    string           `json:"userId"`
	CreatedAt time.Time        `json:"createdAt"`
	Analysis  *analysis.Result `json:"analysis,omitempty"`
}

// Restatement is a participant's attempt to restate another participant's
// position in the STEEL_MANNING phase.
type Restatement struct {
	OriginalID     string           `json:"originalId,omitempty"`
	Original       string           `json:"original"`
	OriginalAuthor string           `json:"originalAuthor"`
	Restatement    string           `json:"restatement"`
	UserID         string           `json:"userId"`
	Analysis       *analysis.Result `json:"analysis,omitempty"`
	Confirmed      bool             `json:"confirmed"`
}

// CountBy returns how many of statements were made by userID.
func CountBy(statements []Statement, userID string) int {
	n := 0
	for _, s := range statements {
		if s.UserID == userID {
			n++
		}
	}
	return n
}
