package health

import (
	"math"
	"time"
)

// DefaultLookbackMonths is the trailing window the aggregator considers.
const DefaultLookbackMonths = 6

// Weights are the per-factor multipliers of the overall score.
type Weights struct {
	Liquidity   float64 `json:"liquidity"`
	SavingsRate float64 `json:"savingsRate"`
	Trend       float64 `json:"trend"`
	FutureRisk  float64 `json:"futureRisk"`
}

// DefaultWeights favour the two solvency factors.
var DefaultWeights = Weights{
	Liquidity:   0.30,
	SavingsRate: 0.25,
	Trend:       0.20,
	FutureRisk:  0.25,
}

// IsZero reports whether no weight has been set.
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Validate checks the weights are finite, non-negative and sum to 1.
func (w Weights) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"liquidity", w.Liquidity},
		{"savingsRate", w.SavingsRate},
		{"trend", w.Trend},
		{"futureRisk", w.FutureRisk},
	}
	var sum float64
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return &ValidationError{Kind: "weights", Index: -1, Field: f.name, Reason: "must be a finite number >= 0"}
		}
		sum += f.v
	}
	if math.Abs(sum-1) > 1e-9 {
		return &ValidationError{Kind: "weights", Index: -1, Reason: "must sum to 1"}
	}
	return nil
}

// Options tune a scoring run. The zero value scores with the defaults and
// anchors on the month of the latest transaction.
type Options struct {
	AsOf           time.Time `json:"asOf"`
	LookbackMonths int       `json:"lookbackMonths"`
	Weights        Weights   `json:"weights"`
}

func (o Options) withDefaults() Options {
	if o.LookbackMonths < 1 {
		o.LookbackMonths = DefaultLookbackMonths
	}
	if o.Weights.IsZero() {
		o.Weights = DefaultWeights
	}
	if !o.AsOf.IsZero() {
		o.AsOf = monthStart(o.AsOf)
	}
	return o
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
