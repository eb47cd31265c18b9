// Package patterns implements regex and keyword driven extraction of
// structured facts from policy text: labeled dates and risk-bearing clauses.
// Extraction is declarative: ordered tables of (pattern, kind) and
// (severity, keywords), so new patterns are added without touching logic.
package patterns

import (
	"regexp"
	"strings"
	"unicode"
)

// DateKind labels a date extracted from policy text.
type DateKind string

const (
	DatePolicyStart DateKind = "Policy Start Date"
	DatePolicyEnd   DateKind = "Policy End Date"
	DateRenewal     DateKind = "Renewal Date"
	DateClaim       DateKind = "Claim Deadline"
	DatePremiumDue  DateKind = "Premium Due Date"
)

// DateKinds lists all date kinds in extraction order.
var DateKinds = []DateKind{DatePolicyStart, DatePolicyEnd, DateRenewal, DateClaim, DatePremiumDue}

type datePattern struct {
	kind DateKind
	re   *regexp.Regexp
}

// Date patterns commonly found in insurance policies. Matched against
// lower-cased text; group 1 captures the date string.
var datePatterns = []datePattern{
	{DatePolicyStart, regexp.MustCompile(`(?:policy\s+)?(?:effective|start|commencement)\s+date[:\s]*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`)},
	{DatePolicyEnd, regexp.MustCompile(`(?:expiry|expiration|end|maturity)\s+date[:\s]*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`)},
	{DateRenewal, regexp.MustCompile(`(?:renewal)\s+date[:\s]*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`)},
	{DateClaim, regexp.MustCompile(`(?:claim\s+)?(?:deadline|due)\s+date[:\s]*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`)},
	{DatePremiumDue, regexp.MustCompile(`(?:premium\s+)?(?:payment|due)\s+date[:\s]*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`)},
}

// ExtractDates scans text for labeled policy dates. For each kind only the
// first match is retained; kinds with no match are absent from the result.
// Empty input yields an empty map.
func ExtractDates(text string) map[DateKind]string {
	dates := make(map[DateKind]string)
	lower := strings.ToLower(text)

	for _, p := range datePatterns {
		if _, seen := dates[p.kind]; seen {
			continue
		}
		if m := p.re.FindStringSubmatch(lower); m != nil {
			dates[p.kind] = m[1]
		}
	}
	return dates
}

// Severity classifies a risk finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// RiskFindings holds flagged clause snippets grouped by severity, in keyword
// discovery order. Low severity entries are benefits rather than risks.
type RiskFindings struct {
	High   []string `json:"high"`
	Medium []string `json:"medium"`
	Low    []string `json:"low"`
}

// Counts returns the number of findings per severity.
func (f RiskFindings) Counts() (high, medium, low int) {
	return len(f.High), len(f.Medium), len(f.Low)
}

// Keywords that signal risk-bearing (or benefit) clauses, by severity.
// Order within each list determines finding order in the output.
var riskKeywords = []struct {
	severity Severity
	marker   string
	words    []string
}{
	{SeverityHigh, "⚠", []string{
		"exclusions", "not covered", "pre-existing conditions", "waiting period",
		"deductible", "co-payment", "limitations", "restrictions", "penalties",
		"cancellation", "non-refundable", "age limit", "geographic restrictions",
	}},
	{SeverityMedium, "⚡", []string{
		"subject to approval", "medical examination required", "documentation required",
		"proof of income", "annual limit", "sub-limits", "depreciation",
		"claim settlement ratio", "network hospitals only",
	}},
	{SeverityLow, "✓", []string{
		"guaranteed renewal", "no medical examination", "cashless treatment",
		"worldwide coverage", "lifetime renewability", "no age limit",
		"immediate coverage", "restoration benefit",
	}},
}

const (
	contextRadius = 100
	snippetMax    = 150
)

// allKeywords holds every keyword across severities, used for shadow checks.
var allKeywords = func() []string {
	var all []string
	for _, group := range riskKeywords {
		all = append(all, group.words...)
	}
	return all
}()

// ExtractRisks scans text for risk keywords (case-insensitive). Each keyword
// contributes at most one finding, built from a ±100 character window around
// its first occurrence and truncated to 150 characters. Findings are grouped
// per severity in keyword-list order, not document order.
//
// An occurrence lying wholly inside an occurrence of a longer keyword does
// not count: "no age limit" must not also flag "age limit".
func ExtractRisks(text string) RiskFindings {
	var findings RiskFindings
	lower := strings.ToLower(text)

	for _, group := range riskKeywords {
		for _, keyword := range group.words {
			idx := firstUnshadowed(lower, keyword)
			if idx < 0 {
				continue
			}

			start := idx - contextRadius
			if start < 0 {
				start = 0
			}
			end := idx + len(keyword) + contextRadius
			if end > len(text) {
				end = len(text)
			}
			snippet := strings.TrimSpace(text[start:end])
			if len(snippet) > snippetMax {
				snippet = snippet[:snippetMax]
			}

			finding := group.marker + " " + titleCase(keyword) + ": " + snippet
			switch group.severity {
			case SeverityHigh:
				findings.High = append(findings.High, finding)
			case SeverityMedium:
				findings.Medium = append(findings.Medium, finding)
			case SeverityLow:
				findings.Low = append(findings.Low, finding)
			}
		}
	}
	return findings
}

// firstUnshadowed returns the index of the first occurrence of keyword in
// lower that is not contained within an occurrence of a longer keyword, or -1.
func firstUnshadowed(lower, keyword string) int {
	for from := 0; ; {
		idx := strings.Index(lower[from:], keyword)
		if idx < 0 {
			return -1
		}
		idx += from
		if !shadowed(lower, keyword, idx) {
			return idx
		}
		from = idx + 1
	}
}

// shadowed reports whether the keyword occurrence at pos lies inside an
// occurrence of a longer keyword from any severity list.
func shadowed(lower, keyword string, pos int) bool {
	for _, longer := range allKeywords {
		if len(longer) <= len(keyword) || !strings.Contains(longer, keyword) {
			continue
		}
		start := pos + len(keyword) - len(longer)
		if start < 0 {
			start = 0
		}
		for i := start; i <= pos && i+len(longer) <= len(lower); i++ {
			if lower[i:i+len(longer)] == longer {
				return true
			}
		}
	}
	return false
}

// titleCase upper-cases the first letter of every word, where a word starts
// after any non-letter ("no age limit" → "No Age Limit", "co-payment" →
// "Co-Payment").
func titleCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			sb.WriteRune(r)
			prevLetter = false
		}
	}
	return sb.String()
}
