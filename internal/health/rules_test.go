package health

import (
	"strings"
	"testing"

	"github.com/theirongolddev/cashpulse/internal/model"
)

func negativeAt(month int) model.FutureProjection {
	p := model.FutureProjection{Months: []model.FutureProjectionMonth{
		{Month: "2026-07", ProjectedBalance: 100},
		{Month: "2026-08", ProjectedBalance: 100},
		{Month: "2026-09", ProjectedBalance: 100},
	}}
	if month > 0 {
		for i := month - 1; i < len(p.Months); i++ {
			p.Months[i].ProjectedBalance = -50
		}
		p.WillGoNegative = true
		p.MonthsUntilNegative = &month
	}
	return p
}

// shortfallOutOfRange claims a shortfall month the Months slice does not hold.
func shortfallOutOfRange(month int) model.FutureProjection {
	p := negativeAt(0)
	p.WillGoNegative = true
	p.MonthsUntilNegative = &month
	return p
}

func ruleKeys(alerts []model.HealthAlert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Rule
	}
	return out
}

func TestEvaluateAlerts(t *testing.T) {
	tests := []struct {
		name string
		in   RuleInput
		want []string
	}{
		{
			name: "everything wrong",
			in: RuleInput{
				Metrics:    Metrics{MonthsOfReserve: 0.4, SavingsRate: -8, SpendingTrend: 40, HasTrend: true},
				Projection: negativeAt(2),
				AvgIncome:  1000,
			},
			want: []string{"low-reserve", "projected-shortfall", "negative-savings", "rising-expenses"},
		},
		{
			name: "reserve below target only",
			in: RuleInput{
				Metrics:    Metrics{MonthsOfReserve: 2, SavingsRate: 10},
				Projection: negativeAt(0),
				AvgIncome:  1000,
			},
			want: []string{"reserve-below-target"},
		},
		{
			name: "late shortfall is not critical",
			in: RuleInput{
				Metrics:    Metrics{MonthsOfReserve: 4, SavingsRate: 5},
				Projection: negativeAt(3),
				AvgIncome:  1000,
			},
			want: nil,
		},
		{
			name: "trend at threshold does not fire",
			in: RuleInput{
				Metrics:    Metrics{MonthsOfReserve: 6, SavingsRate: 5, SpendingTrend: 25, HasTrend: true},
				Projection: negativeAt(0),
				AvgIncome:  1000,
			},
			want: nil,
		},
		{
			name: "reserve of exactly three months is on target",
			in: RuleInput{
				Metrics:    Metrics{MonthsOfReserve: 3},
				Projection: negativeAt(0),
			},
			want: nil,
		},
		{
			name: "reserve of exactly one month is not critical",
			in: RuleInput{
				Metrics:    Metrics{MonthsOfReserve: 1},
				Projection: negativeAt(0),
			},
			want: []string{"reserve-below-target"},
		},
		{
			name: "shortfall month outside projection is ignored",
			in: RuleInput{
				Metrics:    Metrics{MonthsOfReserve: 6},
				Projection: shortfallOutOfRange(7),
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ruleKeys(EvaluateAlerts("fp", tt.in))
			if len(got) != len(tt.want) {
				t.Fatalf("rules = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("rules = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestEvaluateAlerts_SeverityOrder(t *testing.T) {
	in := RuleInput{
		Metrics:    Metrics{MonthsOfReserve: 1.5, SavingsRate: -3, SpendingTrend: 30, HasTrend: true},
		Projection: negativeAt(1),
		AvgIncome:  500,
	}
	alerts := EvaluateAlerts("fp", in)
	for i := 1; i < len(alerts); i++ {
		if alerts[i-1].Severity.Rank() > alerts[i].Severity.Rank() {
			t.Fatalf("alert %d (%s) ranked before more severe %s", i-1, alerts[i-1].Severity, alerts[i].Severity)
		}
	}
	if alerts[0].Rule != "projected-shortfall" {
		t.Fatalf("first alert = %s, want projected-shortfall", alerts[0].Rule)
	}
}

func TestEvaluateAlerts_StableIDs(t *testing.T) {
	in := RuleInput{Metrics: Metrics{MonthsOfReserve: 0.1, SavingsRate: -20}, Projection: negativeAt(1), AvgIncome: 10}

	a := EvaluateAlerts("household-a", in)
	b := EvaluateAlerts("household-a", in)
	c := EvaluateAlerts("household-b", in)

	seen := make(map[string]bool)
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("alert %s ID changed between runs", a[i].Rule)
		}
		if a[i].ID == c[i].ID {
			t.Fatalf("alert %s shares an ID across fingerprints", a[i].Rule)
		}
		if seen[a[i].ID] {
			t.Fatalf("duplicate alert ID %s", a[i].ID)
		}
		seen[a[i].ID] = true
	}
}

func TestEvaluateSuggestions_ShortfallOutOfRange(t *testing.T) {
	for _, month := range []int{0, -1, 4} {
		in := RuleInput{
			Factors:    model.ScoreFactors{Liquidity: 100, SavingsRate: 100, Trend: 100, FutureRisk: 10},
			Projection: shortfallOutOfRange(month),
		}
		got := EvaluateSuggestions("fp", in)
		if len(got) != 1 || !strings.Contains(got[0].Description, "stay positive") {
			t.Fatalf("month %d: suggestions = %+v, want the no-shortfall future-risk advice", month, got)
		}
	}
}

func TestImpactFor(t *testing.T) {
	tests := []struct {
		score float64
		want  model.Impact
	}{
		{0, model.ImpactHigh},
		{39.9, model.ImpactHigh},
		{40, model.ImpactMedium},
		{70, model.ImpactMedium},
		{70.1, model.ImpactLow},
		{99, model.ImpactLow},
	}
	for _, tt := range tests {
		if got := ImpactFor(tt.score); got != tt.want {
			t.Errorf("ImpactFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestEvaluateSuggestions(t *testing.T) {
	in := RuleInput{
		Factors:    model.ScoreFactors{Liquidity: 100, SavingsRate: 30, Trend: 55, FutureRisk: 71},
		Metrics:    Metrics{MonthsOfReserve: 14, SavingsRate: 4, SpendingTrend: 6, HasTrend: true},
		Projection: negativeAt(0),
		AvgIncome:  3000,
	}
	got := EvaluateSuggestions("fp", in)

	want := []struct {
		factor model.Factor
		impact model.Impact
	}{
		{model.FactorSavings, model.ImpactHigh},
		{model.FactorTrend, model.ImpactMedium},
		{model.FactorFutureRisk, model.ImpactLow},
	}
	if len(got) != len(want) {
		t.Fatalf("suggestions = %+v, want %d", got, len(want))
	}
	for i, w := range want {
		if got[i].Factor != w.factor || got[i].Impact != w.impact {
			t.Fatalf("suggestion[%d] = %s/%s, want %s/%s", i, got[i].Factor, got[i].Impact, w.factor, w.impact)
		}
	}
}

func TestEvaluateSuggestions_PerfectScoreHasNone(t *testing.T) {
	in := RuleInput{Factors: model.ScoreFactors{Liquidity: 100, SavingsRate: 100, Trend: 100, FutureRisk: 100}}
	if got := EvaluateSuggestions("fp", in); len(got) != 0 {
		t.Fatalf("suggestions = %+v, want none", got)
	}
}
