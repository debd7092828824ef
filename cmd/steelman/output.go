package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fyrsmithlabs/steelman/internal/discussion"
	"github.com/fyrsmithlabs/steelman/internal/phase"
	"github.com/fyrsmithlabs/steelman/internal/session"
)

// status is the machine-readable view printed by the status command.
type status struct {
	Session    string                 `json:"session"`
	Phase      phase.Phase            `json:"phase"`
	Finished   bool                   `json:"finished"`
	Percentage int                    `json:"percentage"`
	Remaining  int                    `json:"remaining"`
	Issue      *discussion.Issue      `json:"issue,omitempty"`
	Statements []discussion.Statement `json:"statements"`
}

func newStatus(s *session.Session) status {
	snap := s.Snapshot()
	return status{
		Session:    s.ID(),
		Phase:      snap.Current,
		Finished:   snap.Finished,
		Percentage: snap.Percentage(),
		Remaining:  s.Remaining(),
		Issue:      s.Issue(),
		Statements: s.Statements(),
	}
}

func printStatus(w io.Writer, st status) error {
	fmt.Fprintf(w, "Session: %s\n", st.Session)
	fmt.Fprintf(w, "Phase: %s (%d%%)\n", st.Phase, st.Percentage)
	if st.Issue != nil {
		fmt.Fprintf(w, "Issue: %s\n", st.Issue.Text())
	}
	if len(st.Statements) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nStatements (%d remaining):\n", st.Remaining)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tCREATED\tSTATEMENT")
	for _, s := range st.Statements {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			shortID(s.ID),
			s.UserID,
			s.CreatedAt.Format("2006-01-02 15:04"),
			truncate(s.Content, 60),
		)
	}
	return tw.Flush()
}

func printPhase(w io.Writer, s *session.Session) error {
	snap := s.Snapshot()
	if snap.Finished {
		_, err := fmt.Fprintln(w, "Session finished.")
		return err
	}
	_, err := fmt.Fprintf(w, "Current phase: %s (%d%%)\n", snap.Current, snap.Percentage())
	return err
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(w, "  - %s\n", it)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
