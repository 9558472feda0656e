// Package health scores a household's financial health and projects its
// balance forward. Everything here is pure: no I/O, no clock, no shared
// state, so identical input always produces identical output.
package health

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/theirongolddev/cashpulse/internal/model"
)

// Compute runs the full scoring pipeline for one snapshot. It returns a
// *ValidationError if any record is malformed, and never a partial result.
func Compute(s model.Snapshot, opts Options) (model.FinancialHealthResult, error) {
	opts = opts.withDefaults()
	if err := opts.Weights.Validate(); err != nil {
		return model.FinancialHealthResult{}, err
	}
	if err := Validate(s); err != nil {
		return model.FinancialHealthResult{}, err
	}

	fp, err := Fingerprint(s, opts)
	if err != nil {
		return model.FinancialHealthResult{}, err
	}

	agg := Aggregate(s, opts)
	m := Measure(agg)
	proj := Project(agg)
	factors := scoreFactors(agg, m, proj)
	score := OverallScore(factors, opts.Weights)

	in := RuleInput{
		Metrics:    m,
		Projection: proj,
		Factors:    factors,
		AvgIncome:  agg.AvgMonthlyIncome,
	}

	return model.FinancialHealthResult{
		HouseholdID:        s.HouseholdID,
		Score:              score,
		Classification:     Classify(score),
		TotalBalance:       agg.TotalBalance,
		TotalAssets:        agg.TotalAssets,
		TotalLiabilities:   agg.TotalLiabilities,
		MonthsOfReserve:    m.MonthsOfReserve,
		SavingsRate:        m.SavingsRate,
		SpendingTrend:      m.SpendingTrend,
		AvgMonthlyIncome:   agg.AvgMonthlyIncome,
		AvgMonthlyExpenses: agg.AvgMonthlyExpenses,
		MonthsOfHistory:    len(agg.MonthlySeries),
		Factors:            factors,
		FutureProjection:   proj,
		Alerts:             EvaluateAlerts(fp, in),
		Suggestions:        EvaluateSuggestions(fp, in),
		MonthlySeries:      agg.MonthlySeries,
		Fingerprint:        fp,
	}, nil
}

// Fingerprint hashes a snapshot together with the options that affect its
// score. It keys result caches and seeds alert IDs.
func Fingerprint(s model.Snapshot, opts Options) (string, error) {
	opts = opts.withDefaults()
	data, err := json.Marshal(struct {
		Snapshot model.Snapshot `json:"snapshot"`
		Options  Options        `json:"options"`
	}{s, opts})
	if err != nil {
		return "", &ValidationError{Kind: "snapshot", Index: -1, Reason: err.Error()}
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
