package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cashpulse/internal/tui/theme"
)

// RenderStatusBar renders the bottom status bar. middle is an optional
// pre-rendered segment such as the portfolio score.
func RenderStatusBar(width int, middle, dataAge string, refreshing, autoRefresh bool) string {
	t := theme.Active

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	left := base.Render(" ") + keyStyle.Render("?") + base.Render(" help  ") +
		keyStyle.Render("r") + base.Render(" refresh  ") +
		keyStyle.Render("q") + base.Render(" quit ")

	var right string
	switch {
	case refreshing:
		right = keyStyle.Render("refreshing… ")
	case dataAge != "":
		right = dimStyle.Render("loaded in " + dataAge + " ")
	}
	if autoRefresh {
		right = dimStyle.Render("auto ") + right
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(middle) - lipgloss.Width(right)
	if gap < 0 {
		middle = ""
		gap = max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	}
	lpad := gap / 2
	rpad := gap - lpad

	return left +
		base.Render(strings.Repeat(" ", lpad)) +
		middle +
		base.Render(strings.Repeat(" ", rpad)) +
		right
}
