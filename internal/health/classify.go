package health

import (
	"math"

	"github.com/theirongolddev/cashpulse/internal/model"
)

// classBands maps the lowest score of each band to its classification,
// best first.
var classBands = []struct {
	min   int
	class model.Classification
}{
	{80, model.ClassExcellent},
	{60, model.ClassGood},
	{40, model.ClassFair},
	{20, model.ClassPoor},
	{0, model.ClassCritical},
}

// OverallScore combines the factors into a rounded 0-100 score.
func OverallScore(f model.ScoreFactors, w Weights) int {
	raw := w.Liquidity*f.Liquidity +
		w.SavingsRate*f.SavingsRate +
		w.Trend*f.Trend +
		w.FutureRisk*f.FutureRisk
	return int(clampScore(math.Round(raw)))
}

// Classify returns the band a score falls into.
func Classify(score int) model.Classification {
	for _, b := range classBands {
		if score >= b.min {
			return b.class
		}
	}
	return model.ClassCritical
}

// BandFloor returns the lowest score that still classifies as c.
func BandFloor(c model.Classification) int {
	for _, b := range classBands {
		if b.class == c {
			return b.min
		}
	}
	return 0
}
