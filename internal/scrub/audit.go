package scrub

import (
	"sort"
	"time"
)

// Audit records what was redacted. It never holds secret values.
type Audit struct {
	Timestamp  time.Time      `json:"timestamp"`
	Redactions []Redaction    `json:"redactions"`
	RuleCounts map[string]int `json:"rule_counts"`
}

// Redaction describes one removed secret.
type Redaction struct {
	RuleID      string `json:"rule_id"`
	RuleDesc    string `json:"rule_desc"`
	OriginalLen int    `json:"original_len"`
}

// Total returns the number of redactions.
func (a Audit) Total() int {
	return len(a.Redactions)
}

// Rules returns the distinct rule IDs that fired, sorted.
func (a Audit) Rules() []string {
	rules := make([]string, 0, len(a.RuleCounts))
	for id := range a.RuleCounts {
		rules = append(rules, id)
	}
	sort.Strings(rules)
	return rules
}

func buildAudit(findings []Finding, now time.Time) Audit {
	audit := Audit{
		Timestamp:  now,
		Redactions: make([]Redaction, 0, len(findings)),
		RuleCounts: make(map[string]int),
	}
	for _, f := range findings {
		audit.Redactions = append(audit.Redactions, Redaction{
			RuleID:      f.RuleID,
			RuleDesc:    f.RuleDesc,
			OriginalLen: len(f.Secret),
		})
		audit.RuleCounts[f.RuleID]++
	}
	return audit
}
