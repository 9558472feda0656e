package pipeline

import (
	"sort"

	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
)

// FactorContribution is one factor's share of the overall score.
type FactorContribution struct {
	Factor    model.Factor
	Label     string
	Weight    float64
	Score     float64 // 0-100 sub-score
	Points    float64 // Weight * Score
	MaxPoints float64 // Weight * 100
	Lost      float64 // MaxPoints - Points
}

// FactorLabels are display names for each factor.
var FactorLabels = map[model.Factor]string{
	model.FactorLiquidity:  "Liquidity",
	model.FactorSavings:    "Savings Rate",
	model.FactorTrend:      "Spending Trend",
	model.FactorFutureRisk: "Future Risk",
}

// FactorBreakdown splits a result's score into per-factor points, ordered
// by points lost so the biggest drag comes first.
func FactorBreakdown(f model.ScoreFactors, w health.Weights) []FactorContribution {
	rows := []FactorContribution{
		{Factor: model.FactorLiquidity, Weight: w.Liquidity},
		{Factor: model.FactorSavings, Weight: w.SavingsRate},
		{Factor: model.FactorTrend, Weight: w.Trend},
		{Factor: model.FactorFutureRisk, Weight: w.FutureRisk},
	}
	for i := range rows {
		r := &rows[i]
		r.Label = FactorLabels[r.Factor]
		r.Score = f.Get(r.Factor)
		r.Points = r.Weight * r.Score
		r.MaxPoints = r.Weight * 100
		r.Lost = r.MaxPoints - r.Points
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Lost > rows[j].Lost
	})
	return rows
}
