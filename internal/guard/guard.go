// Package guard scans tool output for prompt-injection and data-exfil
// patterns before it reaches the model. Scanning is advisory for most
// severities; only critical findings block a result.
package guard

import (
	"context"
	"fmt"

	"github.com/garagon/aguara"
)

// Verdict is the scanner's decision for one tool result.
type Verdict string

const (
	VerdictClean Verdict = "clean"
	VerdictFlag  Verdict = "flag"
	VerdictBlock Verdict = "block"
)

// Finding is a simplified match for audit records and logs.
type Finding struct {
	RuleID   string `json:"rule_id"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
	Match    string `json:"match,omitempty"`
}

// Outcome holds the result of scanning one tool result.
type Outcome struct {
	Verdict  Verdict
	Findings []Finding
}

// Scanner wraps the Aguara engine for in-process result scanning.
type Scanner struct {
	opts []aguara.Option
}

// NewScanner creates a scanner over Aguara's built-in rules. If
// customRulesDir is non-empty, rules from that directory are also loaded.
func NewScanner(customRulesDir string, extraOpts ...aguara.Option) *Scanner {
	s := &Scanner{}
	if customRulesDir != "" {
		s.opts = append(s.opts, aguara.WithCustomRules(customRulesDir))
	}
	s.opts = append(s.opts, extraOpts...)
	return s
}

// Scan checks tool output text and returns a verdict. Critical findings
// block; high and medium findings flag.
func (s *Scanner) Scan(ctx context.Context, content string) (*Outcome, error) {
	result, err := aguara.ScanContent(ctx, content, "tool-result.md", s.opts...)
	if err != nil {
		return nil, fmt.Errorf("aguara scan: %w", err)
	}

	outcome := &Outcome{Verdict: VerdictClean}
	for _, f := range result.Findings {
		outcome.Findings = append(outcome.Findings, Finding{
			RuleID:   f.RuleID,
			Name:     f.RuleName,
			Severity: f.Severity.String(),
			Match:    truncate(f.MatchedText, 200),
		})

		switch {
		case f.Severity >= aguara.SeverityCritical:
			outcome.Verdict = VerdictBlock
		case f.Severity >= aguara.SeverityMedium && outcome.Verdict == VerdictClean:
			outcome.Verdict = VerdictFlag
		}
	}
	return outcome, nil
}

// RulesCount returns the number of loaded rules.
func (s *Scanner) RulesCount(ctx context.Context) int {
	result, err := aguara.ScanContent(ctx, "test", "test.md", s.opts...)
	if err != nil {
		return 0
	}
	return result.RulesLoaded
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
