package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/pipeline"
	"github.com/theirongolddev/cashpulse/internal/tui/components"
	"github.com/theirongolddev/cashpulse/internal/tui/theme"
)

// Households view modes; split is the zero value so it is the default.
const (
	hhViewSplit  = iota // list and detail side by side
	hhViewDetail        // full-width detail
)

// householdsState holds the households tab state.
type householdsState struct {
	cursor   int
	offset   int
	viewMode int

	searching   bool
	searchInput textinput.Model
	searchQuery string
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "household id"
	ti.CharLimit = 64
	ti.Width = 30
	return ti
}

// visibleHouseholds returns the ranked rows matching the search query.
func (a App) visibleHouseholds() []model.HouseholdScore {
	q := strings.ToLower(a.hhState.searchQuery)
	if q == "" {
		return a.ranked
	}
	var out []model.HouseholdScore
	for _, r := range a.ranked {
		if strings.Contains(strings.ToLower(r.HouseholdID), q) {
			out = append(out, r)
		}
	}
	return out
}

func (a *App) moveCursor(delta int) {
	n := len(a.visibleHouseholds())
	if n == 0 {
		a.hhState.cursor = 0
		return
	}
	a.hhState.cursor = max(0, min(a.hhState.cursor+delta, n-1))
}

// householdsKey handles keys specific to the households tab. It reports
// whether the key was consumed.
func (a *App) householdsKey(key string) (bool, tea.Cmd) {
	switch key {
	case "/":
		a.hhState.searching = true
		a.hhState.searchInput = newSearchInput()
		a.hhState.searchInput.SetValue(a.hhState.searchQuery)
		a.hhState.searchInput.Focus()
		return true, textinput.Blink
	case "j", "down":
		a.moveCursor(1)
	case "k", "up":
		a.moveCursor(-1)
	case "g":
		a.hhState.cursor, a.hhState.offset = 0, 0
	case "G":
		a.hhState.cursor = max(len(a.visibleHouseholds())-1, 0)
	case "enter", "f":
		if a.isCompactLayout() {
			return true, nil
		}
		if a.hhState.viewMode == hhViewSplit {
			a.hhState.viewMode = hhViewDetail
		} else {
			a.hhState.viewMode = hhViewSplit
		}
	case "esc":
		if a.hhState.searchQuery != "" {
			a.hhState.searchQuery = ""
			a.hhState.cursor, a.hhState.offset = 0, 0
			return true, nil
		}
		a.hhState.viewMode = hhViewSplit
	case "q":
		if a.hhState.viewMode == hhViewDetail {
			a.hhState.viewMode = hhViewSplit
			return true, nil
		}
		return false, nil
	default:
		return false, nil
	}
	return true, nil
}

// updateHouseholdSearch handles key events while the search box is open.
func (a App) updateHouseholdSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.hhState.searchQuery = strings.TrimSpace(a.hhState.searchInput.Value())
		a.hhState.searching = false
		a.hhState.cursor, a.hhState.offset = 0, 0
		return a, nil
	case "esc":
		a.hhState.searching = false
		return a, nil
	}

	var cmd tea.Cmd
	a.hhState.searchInput, cmd = a.hhState.searchInput.Update(msg)
	return a, cmd
}

func (a App) renderHouseholdsTab(cw, h int) string {
	t := theme.Active
	rows := a.visibleHouseholds()

	var search string
	if a.hhState.searching {
		search = components.ContentCard("Search", a.hhState.searchInput.View(), cw) + "\n"
		h -= lipgloss.Height(search)
	}

	if len(rows) == 0 {
		muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
		body := muted.Render("No households match.")
		if q := a.hhState.searchQuery; q != "" {
			ids := make([]string, len(a.ranked))
			for i, r := range a.ranked {
				ids[i] = r.HouseholdID
			}
			if hints := pipeline.SuggestHousehold(ids, q, 3); len(hints) > 0 {
				body += "\n" + muted.Render("Did you mean: "+strings.Join(hints, ", ")+"?")
			}
		}
		if len(a.ranked) == 0 {
			return search + a.emptyState(cw)
		}
		return search + components.ContentCard("Households", body, cw)
	}

	if a.hhState.viewMode == hhViewDetail && !a.isCompactLayout() {
		r, _ := a.selected()
		return search + components.ContentCard("Household "+r.HouseholdID, a.householdDetail(r, cw), cw)
	}
	return search + a.renderHouseholdsSplit(rows, cw, h)
}

func (a App) renderHouseholdsSplit(rows []model.HouseholdScore, cw, h int) string {
	t := theme.Active
	ss := a.hhState

	leftW := max(cw/3, 36)
	rightW := cw - leftW
	if a.isCompactLayout() {
		leftW = cw
	}
	leftInner := components.CardInnerWidth(leftW)

	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	visible := max(h-6, 5) // card border, title and footer hint
	offset := ss.offset
	if ss.cursor < offset {
		offset = ss.cursor
	}
	if ss.cursor >= offset+visible {
		offset = ss.cursor - visible + 1
	}
	end := min(offset+visible, len(rows))

	idW := max(leftInner-14, 8)
	var left strings.Builder
	for i := offset; i < end; i++ {
		r := rows[i]
		flag := " "
		if r.Critical > 0 {
			flag = "!"
		}
		line := fmt.Sprintf("%s %-*s %3d %-8s", flag, idW, truncStr(r.HouseholdID, idW), r.Score, r.Classification)
		line = truncStr(line, leftInner)
		if i == ss.cursor {
			left.WriteString(selStyle.Render(line))
		} else {
			left.WriteString(rowStyle.Render(line))
		}
		left.WriteString("\n")
	}
	left.WriteString(mutedStyle.Render("[/] search  [Enter] detail"))

	title := fmt.Sprintf("Households (%d)", len(rows))
	if ss.searchQuery != "" {
		title = fmt.Sprintf("Households matching %q (%d)", ss.searchQuery, len(rows))
	}
	leftCard := components.ContentCard(title, left.String(), leftW)
	if a.isCompactLayout() {
		return leftCard
	}

	r, _ := a.selected()
	rightCard := components.ContentCard(r.HouseholdID, a.householdDetail(r, rightW), rightW)
	return components.CardRow([]string{leftCard, rightCard})
}

// householdDetail renders the metrics, factors and alert list for one
// household. It is shared by the split pane and the full-width view.
func (a App) householdDetail(r model.FinancialHealthResult, w int) string {
	t := theme.Active
	inner := components.CardInnerWidth(w)

	head := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	value := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	score := lipgloss.NewStyle().Foreground(t.Class(r.Classification)).Background(t.Surface).Bold(true)

	kv := func(k, v string) string {
		return label.Render(fmt.Sprintf("%-22s", k)) + value.Render(v)
	}

	lines := []string{
		score.Render(fmt.Sprintf("%s  %s", cli.FormatScore(r.Score), r.Classification)),
		"",
		head.Render("Balances"),
		kv("Total balance", cli.FormatMoney(r.TotalBalance)),
		kv("Assets", cli.FormatMoney(r.TotalAssets)),
		kv("Liabilities", cli.FormatMoney(r.TotalLiabilities)),
		"",
		head.Render("Cash flow"),
		kv("Avg monthly income", cli.FormatMoney(r.AvgMonthlyIncome)),
		kv("Avg monthly expenses", cli.FormatMoney(r.AvgMonthlyExpenses)),
		kv("Months of reserve", cli.FormatMonths(r.MonthsOfReserve)),
		kv("Savings rate", cli.FormatPercent(r.SavingsRate)),
		kv("Spending trend", cli.FormatSignedPercent(r.SpendingTrend)),
		"",
		head.Render("Factors"),
		a.factorGauges(r, w),
	}

	if len(r.MonthlySeries) > 1 {
		net := make([]float64, len(r.MonthlySeries))
		for i, m := range r.MonthlySeries {
			net[i] = m.NetFlow
		}
		lines = append(lines, "", label.Render("Net flow  ")+components.Sparkline(net, t.Green))
	}

	if len(r.Alerts) > 0 {
		lines = append(lines, "", head.Render("Alerts"))
		for _, al := range r.Alerts {
			lines = append(lines, severityBadge(al.Severity)+value.Render(" "+truncStr(al.Title, inner-12)))
		}
	}
	return strings.Join(lines, "\n")
}
