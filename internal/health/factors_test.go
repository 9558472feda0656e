package health

import (
	"testing"

	"github.com/theirongolddev/cashpulse/internal/model"
)

func TestLiquidityFactor(t *testing.T) {
	tests := []struct {
		months float64
		want   float64
	}{
		{-3, 0},
		{0, 0},
		{0.5, 10},
		{1, 20},
		{2, 30},
		{4.5, 50},
		{6, 60},
		{9, 80},
		{10.5, 90},
		{12, 100},
		{40, 100},
	}
	for _, tt := range tests {
		if got := LiquidityFactor(tt.months); !almostEqual(got, tt.want) {
			t.Errorf("LiquidityFactor(%v) = %.4f, want %.4f", tt.months, got, tt.want)
		}
	}
}

func TestSavingsFactor(t *testing.T) {
	tests := []struct {
		income, rate float64
		want         float64
	}{
		{1000, -80, 0},
		{1000, -12.5, 15},
		{1000, 0, 20},
		{1000, 5, 35},
		{1000, 15, 62.5},
		{1000, 35, 87.5},
		{1000, 75, 100},
		{0, 50, 0},
	}
	for _, tt := range tests {
		if got := SavingsFactor(tt.income, tt.rate); !almostEqual(got, tt.want) {
			t.Errorf("SavingsFactor(%v, %v) = %.4f, want %.4f", tt.income, tt.rate, got, tt.want)
		}
	}
}

func TestSavingsRate_NoIncome(t *testing.T) {
	if got := SavingsRate(0, 300); got != -100 {
		t.Fatalf("SavingsRate(0, 300) = %.2f, want -100", got)
	}
	if got := SavingsRate(0, 0); got != 0 {
		t.Fatalf("SavingsRate(0, 0) = %.2f, want 0", got)
	}
}

func TestTrendFactor(t *testing.T) {
	tests := []struct {
		trend float64
		ok    bool
		want  float64
	}{
		{0, false, 50},
		{80, false, 50},
		{-60, true, 100},
		{-10, true, 90},
		{-5, true, 80},
		{0, true, 70},
		{5, true, 55},
		{25, true, 20},
		{62.5, true, 10},
		{200, true, 0},
	}
	for _, tt := range tests {
		if got := TrendFactor(tt.trend, tt.ok); !almostEqual(got, tt.want) {
			t.Errorf("TrendFactor(%v, %v) = %.4f, want %.4f", tt.trend, tt.ok, got, tt.want)
		}
	}
}

func TestSpendingTrend(t *testing.T) {
	series := func(exp ...float64) []model.MonthlyAggregate {
		out := make([]model.MonthlyAggregate, len(exp))
		for i, e := range exp {
			out[i] = model.MonthlyAggregate{Expenses: e}
		}
		return out
	}

	if trend, ok := SpendingTrend(series(1000, 1000, 1300)); !ok || !almostEqual(trend, 30) {
		t.Fatalf("SpendingTrend = %.4f, %v, want 30, true", trend, ok)
	}
	if _, ok := SpendingTrend(series(900)); ok {
		t.Fatal("SpendingTrend with one month reported ok")
	}
	if _, ok := SpendingTrend(series(0, 0, 500)); ok {
		t.Fatal("SpendingTrend with zero prior spending reported ok")
	}
}

func TestFutureRiskFactor(t *testing.T) {
	proj := func(balances ...float64) model.FutureProjection {
		p := model.FutureProjection{}
		for i, b := range balances {
			p.Months = append(p.Months, model.FutureProjectionMonth{ProjectedBalance: b})
			if b < 0 && !p.WillGoNegative {
				p.WillGoNegative = true
				n := i + 1
				p.MonthsUntilNegative = &n
			}
		}
		return p
	}

	tests := []struct {
		name    string
		p       model.FutureProjection
		expense float64
		lo, hi  float64
	}{
		{"stays comfortable", proj(6000, 7000, 8000), 1000, 100, 100},
		{"stays thin", proj(0, 0, 0), 1000, 80, 80},
		{"three month buffer", proj(3000, 3000, 3000), 1000, 90, 90},
		{"negative month 1", proj(-100, -600, -1100), 500, 0, 10},
		{"negative month 2", proj(200, -250, -700), 500, 20, 30},
		{"negative month 3", proj(1000, 500, -250), 500, 45, 45},
	}
	for _, tt := range tests {
		got := FutureRiskFactor(tt.p, tt.expense)
		if got < tt.lo-1e-9 || got > tt.hi+1e-9 {
			t.Errorf("%s: FutureRiskFactor = %.4f, want in [%.0f,%.0f]", tt.name, got, tt.lo, tt.hi)
		}
	}
}

func TestFutureRiskFactor_SoonerIsWorse(t *testing.T) {
	first := 1
	second := 2
	m1 := model.FutureProjection{
		Months:              []model.FutureProjectionMonth{{ProjectedBalance: -1}, {ProjectedBalance: -2}, {ProjectedBalance: -3}},
		WillGoNegative:      true,
		MonthsUntilNegative: &first,
	}
	m2 := model.FutureProjection{
		Months:              []model.FutureProjectionMonth{{ProjectedBalance: 1}, {ProjectedBalance: -2000}, {ProjectedBalance: -4000}},
		WillGoNegative:      true,
		MonthsUntilNegative: &second,
	}
	if a, b := FutureRiskFactor(m1, 1000), FutureRiskFactor(m2, 1000); a >= b {
		t.Fatalf("month-1 shortfall scored %.2f, month-2 scored %.2f; want month 1 lower", a, b)
	}
}

func TestFutureRiskFactor_ShortfallOutOfRange(t *testing.T) {
	months := []model.FutureProjectionMonth{{ProjectedBalance: 3000}, {ProjectedBalance: 3000}, {ProjectedBalance: 3000}}
	for _, n := range []int{0, 4, -2} {
		n := n
		p := model.FutureProjection{Months: months, WillGoNegative: true, MonthsUntilNegative: &n}
		if got := FutureRiskFactor(p, 1000); !almostEqual(got, 90) {
			t.Errorf("MonthsUntilNegative=%d: FutureRiskFactor = %.4f, want 90", n, got)
		}
	}
}
