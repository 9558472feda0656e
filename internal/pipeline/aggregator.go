// Package pipeline orchestrates snapshot loading, caching, and batch scoring.
package pipeline

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/theirongolddev/cashpulse/internal/model"
)

// Summarize computes portfolio statistics across scored households.
func Summarize(results []model.FinancialHealthResult, failed int) model.PortfolioStats {
	stats := model.PortfolioStats{
		Households: len(results) + failed,
		Scored:     len(results),
		Failed:     failed,
		ByClass:    make(map[model.Classification]int, len(model.Classifications)),
	}
	if len(results) == 0 {
		return stats
	}

	stats.MinScore = 101
	stats.MaxScore = -1
	var total int
	for _, r := range results {
		total += r.Score
		if r.Score < stats.MinScore {
			stats.MinScore = r.Score
		}
		if r.Score > stats.MaxScore {
			stats.MaxScore = r.Score
		}
		stats.ByClass[r.Classification]++
		if r.FutureProjection.WillGoNegative {
			stats.AtRisk++
		}
		if r.HasCritical() {
			stats.WithCritical++
		}
		stats.TotalBalance += r.TotalBalance
		stats.TotalDebt += r.TotalLiabilities
	}
	stats.MeanScore = float64(total) / float64(len(results))
	return stats
}

// Rank returns one row per result, worst score first. Ties go to the
// household with more critical alerts, then by household ID.
func Rank(results []model.FinancialHealthResult) []model.HouseholdScore {
	rows := make([]model.HouseholdScore, 0, len(results))
	for _, r := range results {
		row := model.HouseholdScore{
			HouseholdID:    r.HouseholdID,
			Score:          r.Score,
			Classification: r.Classification,
			TotalBalance:   r.TotalBalance,
			Alerts:         len(r.Alerts),
			WillGoNegative: r.FutureProjection.WillGoNegative,
		}
		for _, a := range r.Alerts {
			if a.Severity == model.SeverityCritical {
				row.Critical++
			}
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score < rows[j].Score
		}
		if rows[i].Critical != rows[j].Critical {
			return rows[i].Critical > rows[j].Critical
		}
		return rows[i].HouseholdID < rows[j].HouseholdID
	})
	return rows
}

// FilterByHousehold returns snapshots whose household ID contains the
// substring, case-insensitively.
func FilterByHousehold(snaps []model.Snapshot, household string) []model.Snapshot {
	if household == "" {
		return snaps
	}
	var result []model.Snapshot
	for _, s := range snaps {
		if containsIgnoreCase(s.HouseholdID, household) {
			result = append(result, s)
		}
	}
	return result
}

// FilterByClass returns results in the given classification band.
func FilterByClass(results []model.FinancialHealthResult, class model.Classification) []model.FinancialHealthResult {
	if class == "" {
		return results
	}
	var out []model.FinancialHealthResult
	for _, r := range results {
		if strings.EqualFold(string(r.Classification), string(class)) {
			out = append(out, r)
		}
	}
	return out
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// SuggestHousehold returns the known IDs closest to query by edit
// distance, at most limit of them, for "did you mean" hints.
func SuggestHousehold(ids []string, query string, limit int) []string {
	type candidate struct {
		id   string
		dist int
	}
	q := strings.ToLower(query)
	maxDist := len(q)/2 + 1

	var cands []candidate
	for _, id := range ids {
		d := levenshtein.ComputeDistance(q, strings.ToLower(id))
		if d <= maxDist {
			cands = append(cands, candidate{id, d})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].id < cands[j].id
	})

	out := make([]string, 0, limit)
	for _, c := range cands {
		if len(out) == limit {
			break
		}
		out = append(out, c.id)
	}
	return out
}
