package scoring

import (
	"reflect"
	"strings"
	"testing"

	"github.com/polisight/polisight/internal/patterns"
)

func findings(high, medium, low int) patterns.RiskFindings {
	var f patterns.RiskFindings
	for i := 0; i < high; i++ {
		f.High = append(f.High, "high finding")
	}
	for i := 0; i < medium; i++ {
		f.Medium = append(f.Medium, "medium finding")
	}
	for i := 0; i < low; i++ {
		f.Low = append(f.Low, "low finding")
	}
	return f
}

func TestScore_DecisionTable(t *testing.T) {
	tests := []struct {
		name              string
		high, medium, low int
		wantVerdict       Verdict
		wantScore         int
	}{
		{"all benefits", 0, 0, 3, Recommended, -3},
		{"score zero with enough benefits", 1, 0, 3, Recommended, 0},
		{"moderate", 1, 0, 2, ConditionallyRecommended, 1},
		{"boundary score three", 1, 1, 2, ConditionallyRecommended, 3},
		{"too risky", 2, 1, 2, NotRecommended, 6},
		{"benefit shortfall", 0, 0, 1, NotRecommended, -1},
		{"empty findings", 0, 0, 0, NotRecommended, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Score(findings(tt.high, tt.medium, tt.low), "")
			if rec.Verdict != tt.wantVerdict {
				t.Errorf("Verdict = %s, want %s", rec.Verdict, tt.wantVerdict)
			}
			if rec.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d", rec.Score, tt.wantScore)
			}
			if rec.Reason == "" {
				t.Error("Reason is empty")
			}
		})
	}
}

func TestScore_PureFunctionOfCounts(t *testing.T) {
	a := Score(findings(2, 1, 1), "")
	b := Score(findings(2, 1, 1), "")

	if a.Verdict != b.Verdict || a.Score != b.Score || a.Reason != b.Reason {
		t.Errorf("identical counts produced different outcomes: %+v vs %+v", a, b)
	}
}

func TestScore_EndToEndScenario(t *testing.T) {
	text := "The policy effective date: 01/01/2024. Exclusions apply. No age limit."

	dates := patterns.ExtractDates(text)
	if got := dates[patterns.DatePolicyStart]; got != "01/01/2024" {
		t.Errorf("start date = %q, want %q", got, "01/01/2024")
	}

	f := patterns.ExtractRisks(text)
	high, medium, low := f.Counts()
	if high != 1 || medium != 0 || low != 1 {
		t.Fatalf("Counts() = (%d, %d, %d), want (1, 0, 1)", high, medium, low)
	}
	if !strings.Contains(f.High[0], "Exclusions") {
		t.Errorf("High[0] = %q, want an Exclusions finding", f.High[0])
	}
	if !strings.Contains(f.Low[0], "No Age Limit") {
		t.Errorf("Low[0] = %q, want a No Age Limit finding", f.Low[0])
	}

	rec := Score(f, text)
	if rec.Score != 2 {
		t.Errorf("Score = %d, want 2", rec.Score)
	}
	if rec.Verdict != NotRecommended {
		t.Errorf("Verdict = %s, want %s", rec.Verdict, NotRecommended)
	}
}

func TestFinancialFigures_DocumentOrder(t *testing.T) {
	// Premium appears before sum insured in the document; output follows
	// document position, not pattern order.
	text := "Premium: Rs. 12,000 per year. Sum Insured: Rs. 500,000."

	rec := Score(patterns.RiskFindings{}, text)

	want := []string{"12,000", "500,000"}
	if !reflect.DeepEqual(rec.FinancialFigures, want) {
		t.Errorf("FinancialFigures = %v, want %v", rec.FinancialFigures, want)
	}
}

func TestFinancialFigures_DuplicatesKept(t *testing.T) {
	text := "Premium: 5000. Renewal premium: 5000."

	rec := Score(patterns.RiskFindings{}, text)

	want := []string{"5000", "5000"}
	if !reflect.DeepEqual(rec.FinancialFigures, want) {
		t.Errorf("FinancialFigures = %v, want %v", rec.FinancialFigures, want)
	}
}

func TestFinancialFigures_None(t *testing.T) {
	rec := Score(patterns.RiskFindings{}, "No amounts mentioned anywhere.")

	if len(rec.FinancialFigures) != 0 {
		t.Errorf("FinancialFigures = %v, want empty", rec.FinancialFigures)
	}
}
