package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/tui/components"
	"github.com/theirongolddev/cashpulse/internal/tui/theme"
)

func (a App) renderAlertsTab(cw int) string {
	r, ok := a.selected()
	if !ok {
		return a.emptyState(cw)
	}
	t := theme.Active
	inner := components.CardInnerWidth(cw)

	title := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)
	body := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	action := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	muted := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var alerts strings.Builder
	if len(r.Alerts) == 0 {
		alerts.WriteString(lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface).Render("No alerts for this household."))
	}
	for i, al := range r.Alerts {
		if i > 0 {
			alerts.WriteString("\n\n")
		}
		alerts.WriteString(severityBadge(al.Severity))
		alerts.WriteString(lipgloss.NewStyle().Background(t.Surface).Render(" "))
		alerts.WriteString(title.Render(al.Title))
		alerts.WriteString("\n")
		alerts.WriteString(body.Render(truncStr(al.Description, inner)))
		alerts.WriteString("\n")
		alerts.WriteString(action.Render(truncStr("→ "+al.Action, inner)))
	}

	var sugg strings.Builder
	if len(r.Suggestions) == 0 {
		sugg.WriteString(muted.Render("Every factor is in good shape."))
	}
	for i, s := range r.Suggestions {
		if i > 0 {
			sugg.WriteString("\n\n")
		}
		sugg.WriteString(impactBadge(s.Impact))
		sugg.WriteString(lipgloss.NewStyle().Background(t.Surface).Render(" "))
		sugg.WriteString(title.Render(s.Title))
		sugg.WriteString(muted.Render(fmt.Sprintf("  %s %.0f/100", s.Factor, r.Factors.Get(s.Factor))))
		sugg.WriteString("\n")
		sugg.WriteString(body.Render(truncStr(s.Description, inner)))
	}

	var b strings.Builder
	b.WriteString(components.ContentCard(fmt.Sprintf("Alerts · %s (%d)", r.HouseholdID, len(r.Alerts)), alerts.String(), cw))
	b.WriteString("\n")
	b.WriteString(components.ContentCard(fmt.Sprintf("Suggestions (%d)", len(r.Suggestions)), sugg.String(), cw))
	if n := a.otherCritical(r.HouseholdID); n > 0 {
		b.WriteString("\n")
		b.WriteString(components.ContentCard("Elsewhere",
			body.Render(fmt.Sprintf("%d other households have critical alerts. Press h to browse them.", n)), cw))
	}
	return b.String()
}

// otherCritical counts households other than id with a critical alert.
func (a App) otherCritical(id string) int {
	n := 0
	for _, row := range a.ranked {
		if row.HouseholdID != id && row.Critical > 0 {
			n++
		}
	}
	return n
}

func severityBadge(s model.Severity) string {
	t := theme.Active
	return lipgloss.NewStyle().
		Foreground(t.Background).
		Background(t.Severity(s)).
		Bold(true).
		Padding(0, 1).
		Render(strings.ToUpper(string(s)))
}

func impactBadge(i model.Impact) string {
	t := theme.Active
	color := t.TextMuted
	switch i {
	case model.ImpactHigh:
		color = t.Orange
	case model.ImpactMedium:
		color = t.Yellow
	}
	return lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true).
		Render(fmt.Sprintf("%-6s", strings.ToUpper(string(i))))
}
