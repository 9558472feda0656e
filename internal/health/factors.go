package health

import (
	"math"

	"github.com/theirongolddev/cashpulse/internal/model"
)

// NeutralTrendScore is reported when there is too little history to
// measure a spending trend.
const NeutralTrendScore = 50

// point is a breakpoint of a piecewise-linear score curve.
type point struct{ x, y float64 }

// Score curves. Inputs below the first or above the last breakpoint clamp
// to that breakpoint's score.
var (
	// months of reserve -> liquidity
	liquidityCurve = []point{{0, 0}, {1, 20}, {3, 40}, {6, 60}, {9, 80}, {12, 100}}
	// savings rate % -> savings
	savingsCurve = []point{{-50, 0}, {0, 20}, {10, 50}, {20, 75}, {50, 100}}
	// spending trend % -> trend; rising spend scores lower
	trendCurve = []point{{-50, 100}, {-10, 90}, {0, 70}, {10, 40}, {25, 20}, {100, 0}}
)

func curve(x float64, pts []point) float64 {
	if x <= pts[0].x {
		return clampScore(pts[0].y)
	}
	for i := 1; i < len(pts); i++ {
		if x <= pts[i].x {
			lo, hi := pts[i-1], pts[i]
			return clampScore(lo.y + (x-lo.x)*(hi.y-lo.y)/(hi.x-lo.x))
		}
	}
	return clampScore(pts[len(pts)-1].y)
}

func clampScore(v float64) float64 {
	return clamp(v, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// expenseBase is the divisor used for any "months of expenses" ratio.
func expenseBase(avgExpense float64) float64 {
	return math.Max(avgExpense, 1)
}

// MonthsOfReserve is how many months of average spending the balance covers.
func MonthsOfReserve(totalBalance, avgExpense float64) float64 {
	return totalBalance / expenseBase(avgExpense)
}

// SavingsRate is the share of income left after expenses, in percent.
// With no income it is -100 if anything was spent and 0 otherwise.
func SavingsRate(avgIncome, avgExpense float64) float64 {
	if avgIncome <= 0 {
		if avgExpense > 0 {
			return -100
		}
		return 0
	}
	return (avgIncome - avgExpense) / avgIncome * 100
}

// SpendingTrend compares the latest month's expenses with the mean of the
// earlier months in the series, in percent. ok is false when fewer than two
// months exist or the earlier months recorded no spending.
func SpendingTrend(series []model.MonthlyAggregate) (trend float64, ok bool) {
	if len(series) < 2 {
		return 0, false
	}
	prior := series[:len(series)-1]
	var sum float64
	for _, m := range prior {
		sum += m.Expenses
	}
	priorAvg := sum / float64(len(prior))
	if priorAvg <= 0 {
		return 0, false
	}
	recent := series[len(series)-1].Expenses
	return (recent - priorAvg) / priorAvg * 100, true
}

// LiquidityFactor scores months of reserve.
func LiquidityFactor(monthsOfReserve float64) float64 {
	return curve(monthsOfReserve, liquidityCurve)
}

// SavingsFactor scores the savings rate. A household without income scores 0.
func SavingsFactor(avgIncome, savingsRate float64) float64 {
	if avgIncome <= 0 {
		return 0
	}
	return curve(savingsRate, savingsCurve)
}

// TrendFactor scores the spending trend, or returns the neutral score when
// no trend could be measured.
func TrendFactor(trend float64, ok bool) float64 {
	if !ok {
		return NeutralTrendScore
	}
	return curve(trend, trendCurve)
}

// FutureRiskFactor scores the raw projection. A projection that stays
// non-negative scores 80-100 by how many months of expenses its lowest
// balance covers (full marks at 6). A shortfall scores 0-10, 20-30 or 40-50
// for months 1, 2 and 3, lower within the band the deeper the first
// negative balance is.
func FutureRiskFactor(p model.FutureProjection, avgExpense float64) float64 {
	base := expenseBase(avgExpense)
	idx, ok := firstNegative(p)
	if !ok {
		lowest := math.Inf(1)
		for _, m := range p.Months {
			lowest = math.Min(lowest, m.ProjectedBalance)
		}
		if math.IsInf(lowest, 1) {
			lowest = 0
		}
		return clampScore(80 + 20*clamp(lowest/base/6, 0, 1))
	}

	deficit := -p.Months[idx-1].ProjectedBalance
	floor := 20 * float64(idx-1)
	return clampScore(floor + 10*(1-clamp(deficit/base, 0, 1)))
}

// firstNegative returns the 1-based shortfall month, or false when the
// projection has none or its index does not point into Months.
func firstNegative(p model.FutureProjection) (int, bool) {
	if !p.WillGoNegative || p.MonthsUntilNegative == nil {
		return 0, false
	}
	n := *p.MonthsUntilNegative
	if n < 1 || n > len(p.Months) {
		return 0, false
	}
	return n, true
}

// scoreFactors computes all four factors from their inputs.
func scoreFactors(agg model.Aggregates, m Metrics, p model.FutureProjection) model.ScoreFactors {
	return model.ScoreFactors{
		Liquidity:   LiquidityFactor(m.MonthsOfReserve),
		SavingsRate: SavingsFactor(agg.AvgMonthlyIncome, m.SavingsRate),
		Trend:       TrendFactor(m.SpendingTrend, m.HasTrend),
		FutureRisk:  FutureRiskFactor(p, agg.AvgMonthlyExpenses),
	}
}

// Metrics are the raw ratios the factors and rules read.
type Metrics struct {
	MonthsOfReserve float64
	SavingsRate     float64
	SpendingTrend   float64
	HasTrend        bool
}

// Measure derives the raw ratios from aggregates.
func Measure(agg model.Aggregates) Metrics {
	trend, ok := SpendingTrend(agg.MonthlySeries)
	return Metrics{
		MonthsOfReserve: MonthsOfReserve(agg.TotalBalance, agg.AvgMonthlyExpenses),
		SavingsRate:     SavingsRate(agg.AvgMonthlyIncome, agg.AvgMonthlyExpenses),
		SpendingTrend:   trend,
		HasTrend:        ok,
	}
}
