package model

// PortfolioStats summarizes scoring results across many households.
type PortfolioStats struct {
	Households   int
	Scored       int
	Failed       int
	MeanScore    float64
	MinScore     int
	MaxScore     int
	AtRisk       int // households with a projected shortfall
	WithCritical int // households with at least one critical alert
	ByClass      map[Classification]int
	TotalBalance float64
	TotalDebt    float64
}

// HouseholdScore is one row of a ranked household listing.
type HouseholdScore struct {
	HouseholdID    string         `json:"householdId"`
	Score          int            `json:"score"`
	Classification Classification `json:"classification"`
	TotalBalance   float64        `json:"totalBalance"`
	Alerts         int            `json:"alerts"`
	Critical       int            `json:"critical"`
	WillGoNegative bool           `json:"willGoNegative"`
}
