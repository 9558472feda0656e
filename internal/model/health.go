package model

// Severity ranks an alert.
type Severity string

// Alert severities, most urgent first.
const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities; lower is more urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Impact estimates how much acting on a suggestion would move the score.
type Impact string

// Suggestion impacts, largest first.
const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

// Rank orders impacts; lower is larger.
func (i Impact) Rank() int {
	switch i {
	case ImpactHigh:
		return 0
	case ImpactMedium:
		return 1
	default:
		return 2
	}
}

// Classification is the band an overall score falls into.
type Classification string

// Classification bands, best first.
const (
	ClassExcellent Classification = "Excellent"
	ClassGood      Classification = "Good"
	ClassFair      Classification = "Fair"
	ClassPoor      Classification = "Poor"
	ClassCritical  Classification = "Critical"
)

// Classifications lists every band from best to worst.
var Classifications = []Classification{ClassExcellent, ClassGood, ClassFair, ClassPoor, ClassCritical}

// Factor names a scoring dimension.
type Factor string

// Scoring factors.
const (
	FactorLiquidity  Factor = "liquidity"
	FactorSavings    Factor = "savingsRate"
	FactorTrend      Factor = "trend"
	FactorFutureRisk Factor = "futureRisk"
)

// ScoreFactors holds the four sub-scores, each in [0, 100].
type ScoreFactors struct {
	Liquidity   float64 `json:"liquidity"`
	SavingsRate float64 `json:"savingsRate"`
	Trend       float64 `json:"trend"`
	FutureRisk  float64 `json:"futureRisk"`
}

// Get returns the sub-score for f.
func (sf ScoreFactors) Get(f Factor) float64 {
	switch f {
	case FactorLiquidity:
		return sf.Liquidity
	case FactorSavings:
		return sf.SavingsRate
	case FactorTrend:
		return sf.Trend
	case FactorFutureRisk:
		return sf.FutureRisk
	}
	return 0
}

// FutureProjectionMonth is one month of forward cash projection.
type FutureProjectionMonth struct {
	Month             string  `json:"month"`
	ProjectedIncome   float64 `json:"projectedIncome"`
	ProjectedExpenses float64 `json:"projectedExpenses"`
	ProjectedBalance  float64 `json:"projectedBalance"`
}

// FutureProjection is the three-month forward view. MonthsUntilNegative is
// set only when WillGoNegative is true and is a 1-based index into Months.
type FutureProjection struct {
	Months              []FutureProjectionMonth `json:"months"`
	WillGoNegative      bool                    `json:"willGoNegative"`
	MonthsUntilNegative *int                    `json:"monthsUntilNegative"`
}

// HealthAlert is a condition that needs attention.
type HealthAlert struct {
	ID          string   `json:"id"`
	Rule        string   `json:"rule"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Action      string   `json:"action"`
}

// HealthSuggestion is an improvement tied to one weak factor.
type HealthSuggestion struct {
	ID          string `json:"id"`
	Impact      Impact `json:"impact"`
	Factor      Factor `json:"factor"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// FinancialHealthResult is the full output of one scoring run.
type FinancialHealthResult struct {
	HouseholdID        string             `json:"householdId,omitempty"`
	Score              int                `json:"score"`
	Classification     Classification     `json:"classification"`
	TotalBalance       float64            `json:"totalBalance"`
	TotalAssets        float64            `json:"totalAssets"`
	TotalLiabilities   float64            `json:"totalLiabilities"`
	MonthsOfReserve    float64            `json:"monthsOfReserve"`
	SavingsRate        float64            `json:"savingsRate"`
	SpendingTrend      float64            `json:"spendingTrend"`
	AvgMonthlyIncome   float64            `json:"avgMonthlyIncome"`
	AvgMonthlyExpenses float64            `json:"avgMonthlyExpenses"`
	MonthsOfHistory    int                `json:"monthsOfHistory"`
	Factors            ScoreFactors       `json:"factors"`
	FutureProjection   FutureProjection   `json:"futureProjection"`
	Alerts             []HealthAlert      `json:"alerts"`
	Suggestions        []HealthSuggestion `json:"suggestions"`
	MonthlySeries      []MonthlyAggregate `json:"monthlySeries"`
	Fingerprint        string             `json:"fingerprint"`
}

// HasCritical reports whether any alert is critical.
func (r FinancialHealthResult) HasCritical() bool {
	for _, a := range r.Alerts {
		if a.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
