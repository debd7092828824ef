package scrub

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// Finding is a detected secret.
type Finding struct {
	RuleID   string
	RuleDesc string
	Secret   string
}

// Result is redacted text plus its audit trail.
type Result struct {
	Text  string
	Audit Audit
}

// Scrubber detects and redacts secrets. It is safe for concurrent use.
type Scrubber struct {
	mu     sync.Mutex
	detect func(string) []Finding
	now    func() time.Time
}

// New builds a scrubber over the default gitleaks rules plus allowlist.
// Building the detector compiles several hundred rules, so callers keep
// one Scrubber for the process.
func New(allowlist *Allowlist) (*Scrubber, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating gitleaks detector: %w", err)
	}
	if allowlist != nil && len(allowlist.Regexes) > 0 {
		if err := applyAllowlist(&detector.Config, allowlist); err != nil {
			return nil, err
		}
	}

	return newScrubber(func(text string) []Finding {
		found := detector.DetectString(text)
		out := make([]Finding, 0, len(found))
		for _, f := range found {
			out = append(out, Finding{RuleID: f.RuleID, RuleDesc: f.Description, Secret: f.Secret})
		}
		return out
	}), nil
}

func newScrubber(detect func(string) []Finding) *Scrubber {
	return &Scrubber{detect: detect, now: time.Now}
}

func applyAllowlist(cfg *gitleaksConfig.Config, allowlist *Allowlist) error {
	entry := &gitleaksConfig.Allowlist{Description: "steelman allowlist"}
	for _, pattern := range allowlist.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRegex, pattern, err)
		}
		entry.Regexes = append(entry.Regexes, (*gitleaksRegexp.Regexp)(re))
	}
	entry.StopWords = append(entry.StopWords, allowlist.Regexes...)
	cfg.Allowlists = append(cfg.Allowlists, entry)
	return nil
}

// Redact replaces every detected secret in text with [REDACTED:rule-id].
func (s *Scrubber) Redact(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Text: text, Audit: buildAudit(nil, s.now())}
	}

	s.mu.Lock()
	findings := s.detect(text)
	s.mu.Unlock()

	// Longest first so a secret containing another is replaced whole.
	sorted := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Secret != "" {
			sorted = append(sorted, f)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Secret) > len(sorted[j].Secret)
	})

	out := text
	for _, f := range sorted {
		out = strings.ReplaceAll(out, f.Secret, "[REDACTED:"+f.RuleID+"]")
	}
	return Result{Text: out, Audit: buildAudit(sorted, s.now())}
}

// RedactString returns text with secrets removed and the number removed.
func (s *Scrubber) RedactString(text string) (string, int) {
	res := s.Redact(text)
	return res.Text, res.Audit.Total()
}
