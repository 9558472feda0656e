package health

import (
	"fmt"
	"sort"

	"github.com/theirongolddev/cashpulse/internal/model"
)

type suggestionRule struct {
	factor   model.Factor
	title    string
	describe func(RuleInput) string
}

// suggestionRules holds one rule per factor, in tie-break order.
var suggestionRules = []suggestionRule{
	{
		factor: model.FactorLiquidity,
		title:  "Grow your emergency reserve",
		describe: func(in RuleInput) string {
			return fmt.Sprintf("Your reserve covers %.1f months of expenses. Each added month of cash lifts this factor until about twelve months.", in.Metrics.MonthsOfReserve)
		},
	},
	{
		factor: model.FactorFutureRisk,
		title:  "Protect your forward balance",
		describe: func(in RuleInput) string {
			if n, label := in.negativeMonth(); n > 0 {
				return fmt.Sprintf("The projection turns negative in %s. Trim expenses or add income before then.", label)
			}
			return "Projected balances stay positive but thin. Keep at least six months of expenses above zero across the projection."
		},
	},
	{
		factor: model.FactorSavings,
		title:  "Raise your savings rate",
		describe: func(in RuleInput) string {
			if in.AvgIncome <= 0 {
				return "No income was recorded in the lookback window, so savings cannot be credited. Record income transactions."
			}
			return fmt.Sprintf("You keep %.1f%% of income after expenses. Aim for 20%% or more.", in.Metrics.SavingsRate)
		},
	},
	{
		factor: model.FactorTrend,
		title:  "Slow spending growth",
		describe: func(in RuleInput) string {
			if !in.Metrics.HasTrend {
				return "There is not enough spending history to measure a trend yet. Keep tracking expenses for at least two months."
			}
			return fmt.Sprintf("Latest month's spending is %+.1f%% against the prior average. Hold it flat or lower.", in.Metrics.SpendingTrend)
		},
	},
}

// ImpactFor grades how much improving a factor would help.
func ImpactFor(factorScore float64) model.Impact {
	switch {
	case factorScore < 40:
		return model.ImpactHigh
	case factorScore <= 70:
		return model.ImpactMedium
	default:
		return model.ImpactLow
	}
}

// EvaluateSuggestions emits at most one suggestion per factor scoring
// below 100, ordered by impact and then by table order.
func EvaluateSuggestions(fingerprint string, in RuleInput) []model.HealthSuggestion {
	out := make([]model.HealthSuggestion, 0, len(suggestionRules))
	for _, r := range suggestionRules {
		score := in.Factors.Get(r.factor)
		if score >= 100 {
			continue
		}
		out = append(out, model.HealthSuggestion{
			ID:          ruleID(fingerprint, "suggestion/"+string(r.factor)),
			Impact:      ImpactFor(score),
			Factor:      r.factor,
			Title:       r.title,
			Description: r.describe(in),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Impact.Rank() < out[j].Impact.Rank()
	})
	return out
}
