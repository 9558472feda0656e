package health

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/theirongolddev/cashpulse/internal/model"
)

// RuleInput is what alert and suggestion rules read.
type RuleInput struct {
	Metrics    Metrics
	Projection model.FutureProjection
	Factors    model.ScoreFactors
	AvgIncome  float64
}

func (in RuleInput) negativeMonth() (int, string) {
	n, ok := firstNegative(in.Projection)
	if !ok {
		return 0, ""
	}
	return n, in.Projection.Months[n-1].Month
}

type alertRule struct {
	key      string
	severity model.Severity
	title    string
	action   string
	match    func(RuleInput) bool
	describe func(RuleInput) string
}

// alertRules is evaluated top to bottom; every matching rule emits one alert.
var alertRules = []alertRule{
	{
		key:      "low-reserve",
		severity: model.SeverityCritical,
		title:    "Low emergency reserve",
		action:   "Build an emergency fund that covers at least one month of expenses, then grow it to three.",
		match:    func(in RuleInput) bool { return in.Metrics.MonthsOfReserve < 1 },
		describe: func(in RuleInput) string {
			return fmt.Sprintf("Your balance covers %.1f months of average expenses.", in.Metrics.MonthsOfReserve)
		},
	},
	{
		key:      "projected-shortfall",
		severity: model.SeverityCritical,
		title:    "Projected shortfall",
		action:   "Cut discretionary spending or move money into your accounts before the shortfall month.",
		match: func(in RuleInput) bool {
			n, _ := in.negativeMonth()
			return n > 0 && n <= 2
		},
		describe: func(in RuleInput) string {
			n, label := in.negativeMonth()
			return fmt.Sprintf("At the current pace your balance goes negative in %s (month %d of the projection).", label, n)
		},
	},
	{
		key:      "negative-savings",
		severity: model.SeverityWarning,
		title:    "Spending more than earning",
		action:   "Review recurring expenses and set a monthly spending cap below your income.",
		match:    func(in RuleInput) bool { return in.Metrics.SavingsRate < 0 },
		describe: func(in RuleInput) string {
			if in.AvgIncome <= 0 {
				return "No income was recorded in the lookback window while expenses were."
			}
			return fmt.Sprintf("Expenses exceed income by %.1f%% of income on average.", -in.Metrics.SavingsRate)
		},
	},
	{
		key:      "rising-expenses",
		severity: model.SeverityWarning,
		title:    "Rising expenses",
		action:   "Check the latest month's largest expenses for new recurring costs.",
		match:    func(in RuleInput) bool { return in.Metrics.HasTrend && in.Metrics.SpendingTrend > 25 },
		describe: func(in RuleInput) string {
			return fmt.Sprintf("Spending in the latest month is %.1f%% above the prior average.", in.Metrics.SpendingTrend)
		},
	},
	{
		key:      "reserve-below-target",
		severity: model.SeverityInfo,
		title:    "Reserve below target",
		action:   "Automate a transfer to savings each payday until reserves reach three months of expenses.",
		match: func(in RuleInput) bool {
			return in.Metrics.MonthsOfReserve >= 1 && in.Metrics.MonthsOfReserve < 3
		},
		describe: func(in RuleInput) string {
			return fmt.Sprintf("Your reserve covers %.1f months of expenses; three to six months is the usual target.", in.Metrics.MonthsOfReserve)
		},
	},
}

// idNamespace seeds deterministic alert and suggestion IDs.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/theirongolddev/cashpulse"))

func ruleID(fingerprint, key string) string {
	return uuid.NewSHA1(idNamespace, []byte(fingerprint+"/"+key)).String()
}

// EvaluateAlerts runs the alert rule table and returns matches ordered by
// severity, keeping table order within a severity.
func EvaluateAlerts(fingerprint string, in RuleInput) []model.HealthAlert {
	alerts := make([]model.HealthAlert, 0, len(alertRules))
	for _, r := range alertRules {
		if !r.match(in) {
			continue
		}
		alerts = append(alerts, model.HealthAlert{
			ID:          ruleID(fingerprint, "alert/"+r.key),
			Rule:        r.key,
			Severity:    r.severity,
			Title:       r.title,
			Description: r.describe(in),
			Action:      r.action,
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
	return alerts
}
