package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/pipeline"
	"github.com/theirongolddev/cashpulse/internal/tui/components"
	"github.com/theirongolddev/cashpulse/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	if len(a.results) == 0 {
		return a.emptyState(cw)
	}
	t := theme.Active
	stats := a.stats
	var b strings.Builder

	// Row 1: portfolio headline
	mean := int(stats.MeanScore + 0.5)
	failed := ""
	if stats.Failed > 0 {
		failed = fmt.Sprintf("%d rejected", stats.Failed)
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Households", Value: cli.FormatNumber(int64(stats.Scored)), Delta: failed},
		{Label: "Mean Score", Value: fmt.Sprintf("%.1f", stats.MeanScore), Delta: fmt.Sprintf("range %d-%d", stats.MinScore, stats.MaxScore), Color: t.Class(health.Classify(mean))},
		{Label: "Projected Shortfall", Value: cli.FormatNumber(int64(stats.AtRisk)), Delta: "within 3 months", Color: warnIf(stats.AtRisk > 0)},
		{Label: "Critical Alerts", Value: cli.FormatNumber(int64(stats.WithCritical)), Delta: "households", Color: warnIf(stats.WithCritical > 0)},
		{Label: "Total Balance", Value: cli.FormatMoneyShort(stats.TotalBalance), Delta: "debt " + cli.FormatMoneyShort(stats.TotalDebt), Color: t.Money(stats.TotalBalance)},
	}, cw))
	b.WriteString("\n")

	r, ok := a.selected()
	if !ok {
		return b.String()
	}

	// Row 2: selected household headline
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: r.HouseholdID, Value: cli.FormatScore(r.Score), Delta: string(r.Classification), Color: t.Class(r.Classification)},
		{Label: "Balance", Value: cli.FormatMoney(r.TotalBalance), Delta: fmt.Sprintf("%s assets", cli.FormatMoneyShort(r.TotalAssets)), Color: t.Money(r.TotalBalance)},
		{Label: "Reserve", Value: cli.FormatMonths(r.MonthsOfReserve), Delta: cli.FormatMoney(r.AvgMonthlyExpenses) + "/mo spend"},
		{Label: "Savings Rate", Value: cli.FormatPercent(r.SavingsRate), Delta: cli.FormatMoney(r.AvgMonthlyIncome) + "/mo income"},
		{Label: "Spending Trend", Value: cli.FormatSignedPercent(r.SpendingTrend), Delta: fmt.Sprintf("%d months of history", r.MonthsOfHistory)},
	}, cw))
	b.WriteString("\n")

	// Row 3: factors and band distribution
	halves := components.LayoutRow(cw, 2)
	if a.isCompactLayout() {
		halves = []int{cw, cw}
	}
	factorsCard := components.ContentCard("Score Factors", a.factorGauges(r, halves[0]), halves[0])
	bandsCard := components.ContentCard("Households by Band", a.bandBars(halves[1]), halves[1])
	if a.isCompactLayout() {
		b.WriteString(factorsCard + "\n" + bandsCard)
	} else {
		b.WriteString(components.CardRow([]string{factorsCard, bandsCard}))
	}
	b.WriteString("\n")

	// Row 4: monthly net flow
	if len(r.MonthlySeries) > 0 {
		vals := make([]float64, len(r.MonthlySeries))
		labels := make([]string, len(r.MonthlySeries))
		for i, m := range r.MonthlySeries {
			vals[i] = m.NetFlow
			labels[i] = shortMonth(m.Month)
		}
		b.WriteString(components.ContentCard(
			fmt.Sprintf("Monthly Net Flow (%dm)", len(vals)),
			components.BarChart(vals, labels, t.Green, components.CardInnerWidth(cw), 8),
			cw,
		))
	}

	return b.String()
}

func (a App) factorGauges(r model.FinancialHealthResult, outer int) string {
	t := theme.Active
	inner := components.CardInnerWidth(outer)
	barW := max(inner-16-1-6-8, 8)

	var lines []string
	for _, fc := range pipeline.FactorBreakdown(r.Factors, a.weights()) {
		color := t.Class(classOf(fc.Score))
		note := fmt.Sprintf("×%.0f%%", fc.Weight*100)
		lines = append(lines, components.ScoreGauge(fc.Label, fc.Score, color, note, 16, barW))
	}
	return strings.Join(lines, "\n")
}

func (a App) bandBars(outer int) string {
	t := theme.Active
	inner := components.CardInnerWidth(outer)
	barMax := max(inner-10-6, 5)

	peak := 0
	for _, n := range a.stats.ByClass {
		peak = max(peak, n)
	}

	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	count := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface)

	var lines []string
	for _, c := range model.Classifications {
		n := a.stats.ByClass[c]
		w := 0
		if peak > 0 {
			w = n * barMax / peak
		}
		if n > 0 && w == 0 {
			w = 1
		}
		bar := lipgloss.NewStyle().Foreground(t.Class(c)).Background(t.Surface).Render(strings.Repeat("█", w))
		lines = append(lines, label.Render(fmt.Sprintf("%-10s", c))+bar+space.Render(" ")+count.Render(fmt.Sprint(n)))
	}
	return strings.Join(lines, "\n")
}

func (a App) weights() health.Weights {
	if a.opts.Weights.IsZero() {
		return health.DefaultWeights
	}
	return a.opts.Weights
}

func warnIf(cond bool) lipgloss.Color {
	if cond {
		return theme.Active.Red
	}
	return ""
}

// shortMonth turns "2026-03" into "Mar" and leaves other labels alone.
func shortMonth(m string) string {
	if t, err := time.Parse("2006-01", m); err == nil {
		return t.Format("Jan")
	}
	return m
}

// classOf tints a 0-100 sub-score with the band an overall score of the
// same value would fall into.
func classOf(v float64) model.Classification {
	return health.Classify(int(v + 0.5))
}
