// Package scoring turns risk findings into a recommendation verdict and
// extracts financial figures from policy text.
package scoring

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/polisight/polisight/internal/patterns"
)

// Verdict is the overall recommendation for a policy.
type Verdict string

const (
	Recommended              Verdict = "RECOMMENDED"
	ConditionallyRecommended Verdict = "CONDITIONALLY_RECOMMENDED"
	NotRecommended           Verdict = "NOT_RECOMMENDED"
)

// Recommendation is the scored outcome for a policy document.
type Recommendation struct {
	Verdict          Verdict  `json:"verdict"`
	Reason           string   `json:"reason"`
	Score            int      `json:"score"`
	FinancialFigures []string `json:"financial_figures"`
}

// Amount patterns for sum insured, coverage amount and premium. Matched
// against lower-cased text; group 1 captures the numeric figure.
var financialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sum\s+(?:insured|assured)[:\s]*(?:rs\.?\s*)?(\d+(?:,\d+)*(?:\.\d+)?)`),
	regexp.MustCompile(`coverage\s+amount[:\s]*(?:rs\.?\s*)?(\d+(?:,\d+)*(?:\.\d+)?)`),
	regexp.MustCompile(`premium[:\s]*(?:rs\.?\s*)?(\d+(?:,\d+)*(?:\.\d+)?)`),
}

// Score converts risk findings into a Recommendation. The risk score weighs
// high findings 3, medium 2, and subtracts 1 per low (benefit) finding:
//
//	score <= 0 and low >= 3  → RECOMMENDED
//	score <= 3 and low >= 2  → CONDITIONALLY_RECOMMENDED
//	otherwise                → NOT_RECOMMENDED
//
// Rules are evaluated in order, first match wins. Score is a pure function of
// the three counts; it never fails, including on empty input.
func Score(findings patterns.RiskFindings, text string) Recommendation {
	high, medium, low := findings.Counts()
	riskScore := 3*high + 2*medium - low

	var verdict Verdict
	var reason string
	switch {
	case riskScore <= 0 && low >= 3:
		verdict = Recommended
		reason = fmt.Sprintf(
			"This policy shows strong benefits (%d positive factors) with minimal risks (%d risk factors). Good value proposition.",
			low, high+medium)
	case riskScore <= 3 && low >= 2:
		verdict = ConditionallyRecommended
		reason = fmt.Sprintf(
			"This policy has a moderate risk-benefit balance. Consider the %d high-risk and %d medium-risk factors before deciding.",
			high, medium)
	default:
		verdict = NotRecommended
		reason = fmt.Sprintf(
			"This policy has significant risks (%d high-risk factors) that outweigh the benefits. Consider alternatives.",
			high)
	}

	return Recommendation{
		Verdict:          verdict,
		Reason:           reason,
		Score:            riskScore,
		FinancialFigures: financialFigures(text),
	}
}

// financialFigures collects every amount match across all patterns, ordered by
// position in the document. Duplicates are kept.
func financialFigures(text string) []string {
	lower := strings.ToLower(text)

	type located struct {
		pos    int
		figure string
	}
	var found []located
	for _, re := range financialPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(lower, -1) {
			found = append(found, located{pos: m[0], figure: lower[m[2]:m[3]]})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	var figures []string
	for _, f := range found {
		figures = append(figures, f.figure)
	}
	return figures
}
