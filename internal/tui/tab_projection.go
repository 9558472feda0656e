package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/tui/components"
	"github.com/theirongolddev/cashpulse/internal/tui/theme"
)

func (a App) renderProjectionTab(cw int) string {
	r, ok := a.selected()
	if !ok {
		return a.emptyState(cw)
	}
	t := theme.Active
	p := r.FutureProjection
	var b strings.Builder

	// Row 1: outcome cards
	outcome, outcomeColor := "Stays positive", t.Green
	if p.WillGoNegative && p.MonthsUntilNegative != nil {
		outcome, outcomeColor = fmt.Sprintf("Negative in month %d", *p.MonthsUntilNegative), t.Red
	}
	end := r.TotalBalance
	if n := len(p.Months); n > 0 {
		end = p.Months[n-1].ProjectedBalance
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Balance Now", Value: cli.FormatMoney(r.TotalBalance), Color: t.Money(r.TotalBalance)},
		{Label: fmt.Sprintf("In %d Months", len(p.Months)), Value: cli.FormatMoney(end), Delta: cli.FormatMoney(end-r.TotalBalance) + " change", Color: t.Money(end)},
		{Label: "Outlook", Value: outcome, Color: outcomeColor},
		{Label: "Future Risk", Value: fmt.Sprintf("%.0f/100", r.Factors.FutureRisk), Color: t.Class(classOf(r.Factors.FutureRisk))},
	}, cw))
	b.WriteString("\n")

	// Row 2: balance path chart, now plus each projected month
	vals := []float64{r.TotalBalance}
	labels := []string{"now"}
	for _, m := range p.Months {
		vals = append(vals, m.ProjectedBalance)
		labels = append(labels, shortMonth(m.Month))
	}
	b.WriteString(components.ContentCard(
		"Projected Balance",
		components.BarChart(vals, labels, t.Blue, components.CardInnerWidth(cw), 10),
		cw,
	))
	b.WriteString("\n")

	// Row 3: month table
	b.WriteString(components.ContentCard("Months", a.projectionTable(cw), cw))
	return b.String()
}

func (a App) projectionTable(cw int) string {
	t := theme.Active
	r, _ := a.selected()

	head := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	row := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	colW := max((components.CardInnerWidth(cw)-10)/4, 12)
	line := func(style lipgloss.Style, cells ...string) string {
		out := style.Render(fmt.Sprintf("%-10s", cells[0]))
		for _, c := range cells[1:] {
			out += style.Render(fmt.Sprintf("%*s", colW, c))
		}
		return out
	}

	lines := []string{line(head, "Month", "Income", "Expenses", "Net", "Balance")}
	for _, m := range r.FutureProjection.Months {
		balance := lipgloss.NewStyle().Foreground(t.Money(m.ProjectedBalance)).Background(t.Surface).
			Render(fmt.Sprintf("%*s", colW, cli.FormatMoney(m.ProjectedBalance)))
		lines = append(lines, line(row, m.Month,
			cli.FormatMoney(m.ProjectedIncome),
			cli.FormatMoney(m.ProjectedExpenses),
			cli.FormatMoney(m.ProjectedIncome-m.ProjectedExpenses))+balance)
	}
	lines = append(lines, "", muted.Render("Income and expenses repeat the lookback averages each month."))
	return strings.Join(lines, "\n")
}
