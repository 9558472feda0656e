// Package tui provides the interactive Bubble Tea dashboard for cashpulse.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/config"
	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/pipeline"
	"github.com/theirongolddev/cashpulse/internal/store"
	"github.com/theirongolddev/cashpulse/internal/tui/components"
	"github.com/theirongolddev/cashpulse/internal/tui/theme"
)

// DataLoadedMsg is sent when the loading pipeline finishes.
type DataLoadedMsg struct {
	Households []model.Snapshot
	FileErrors int
	Err        error
	LoadTime   time.Duration
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background reload completes.
type RefreshDataMsg struct {
	Households []model.Snapshot
	FileErrors int
	Err        error
	LoadTime   time.Duration
}

// Tab indexes, matching components.Tabs.
const (
	tabOverview = iota
	tabProjection
	tabAlerts
	tabHouseholds
	tabSettings
)

// App is the root Bubble Tea model.
type App struct {
	// Data
	snaps      []model.Snapshot
	fileErrors int
	loadErr    error
	loaded     bool
	loadTime   time.Duration

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool

	// Scored for the current options
	results  []model.FinancialHealthResult
	byID     map[string]int // household ID -> index into results
	failures []pipeline.ScoreFailure
	ranked   []model.HouseholdScore
	stats    model.PortfolioStats

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Scoring and filter state
	opts      health.Options
	household string

	// Per-tab state
	hhState  householdsState
	settings settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals SetupValues
	needSetup bool

	// Loading, with progress streamed from the loader goroutine
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg

	dataDir string
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
	minRefresh       = 10 * time.Second
)

// loadConfigOrDefault loads config, returning defaults on error so the
// dashboard can always start.
func loadConfigOrDefault() config.Config {
	cfg, err := config.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

// NewApp creates a new dashboard model. household is a substring filter.
func NewApp(dataDir, household string, opts health.Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	cfg := loadConfigOrDefault()
	refreshInterval := time.Duration(cfg.TUI.RefreshIntervalSec) * time.Second
	if refreshInterval < minRefresh {
		refreshInterval = 60 * time.Second
	}

	return App{
		dataDir:         dataDir,
		household:       household,
		opts:            opts,
		needSetup:       !config.Exists(),
		autoRefresh:     cfg.TUI.AutoRefresh,
		refreshInterval: refreshInterval,
		spinner:         sp,
		loadSub:         make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.dataDir, a.loadSub),
		a.spinner.Tick,
		tickCmd(),
	)
}

// recompute rescores the loaded snapshots with the current options and
// household filter.
func (a *App) recompute() {
	snaps := pipeline.FilterByHousehold(a.snaps, a.household)
	res := pipeline.ScoreAll(snaps, a.opts, nil, nil)

	a.results = res.Results
	a.failures = res.Failures
	a.byID = make(map[string]int, len(a.results))
	for i, r := range a.results {
		a.byID[r.HouseholdID] = i
	}
	a.ranked = pipeline.Rank(a.results)
	a.stats = pipeline.Summarize(a.results, len(a.failures)+a.fileErrors)

	rows := a.visibleHouseholds()
	if a.hhState.cursor >= len(rows) {
		a.hhState.cursor = len(rows) - 1
	}
	if a.hhState.cursor < 0 {
		a.hhState.cursor = 0
	}
}

// selected returns the household the detail tabs show: the cursor row of
// the households list.
func (a App) selected() (model.FinancialHealthResult, bool) {
	rows := a.visibleHouseholds()
	if a.hhState.cursor < 0 || a.hhState.cursor >= len(rows) {
		return model.FinancialHealthResult{}, false
	}
	i, ok := a.byID[rows[a.hhState.cursor].HouseholdID]
	if !ok {
		return model.FinancialHealthResult{}, false
	}
	return a.results[i], true
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || (a.needSetup && a.setupForm != nil) {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabHouseholds && !a.hhState.searching {
				a.moveCursor(-1)
			}
		case tea.MouseButtonWheelDown:
			if a.activeTab == tabHouseholds && !a.hhState.searching {
				a.moveCursor(1)
			}
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.snaps = msg.Households
		a.fileErrors = msg.FileErrors
		a.loadErr = msg.Err
		a.loaded = true
		a.loadTime = msg.LoadTime
		a.lastRefresh = time.Now()
		a.recompute()

		if a.needSetup {
			a.setupVals = SetupDefaults(loadConfigOrDefault(), a.dataDir)
			a.setupForm = NewSetupForm(len(a.snaps), &a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing && time.Since(a.lastRefresh) >= a.refreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshDataCmd(a.dataDir))
		}
		return a, tea.Batch(cmds...)

	case RefreshDataMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		a.loadErr = msg.Err
		if msg.Err == nil {
			a.snaps = msg.Households
			a.fileErrors = msg.FileErrors
			a.loadTime = msg.LoadTime
			a.recompute()
		}
		return a, nil
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}
	if a.activeTab == tabHouseholds && a.hhState.searching {
		return a.updateHouseholdSearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch a.activeTab {
	case tabHouseholds:
		if handled, cmd := a.householdsKey(key); handled {
			return a, cmd
		}
	case tabSettings:
		switch key {
		case "j", "down":
			if a.settings.cursor < settingsFieldCount-1 {
				a.settings.cursor++
			}
			return a, nil
		case "k", "up":
			if a.settings.cursor > 0 {
				a.settings.cursor--
			}
			return a, nil
		case "enter":
			return a.settingsStartEdit()
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, refreshDataCmd(a.dataDir)
		}
		return a, nil
	case "R":
		a.autoRefresh = !a.autoRefresh
		cfg := loadConfigOrDefault()
		cfg.TUI.AutoRefresh = a.autoRefresh
		_ = config.Save(cfg)
		return a, nil
	case "[":
		a.moveCursor(-1)
		return a, nil
	case "]":
		a.moveCursor(1)
		return a, nil
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if len(key) == 1 {
		if tab := components.TabIdxByKey(rune(key[0])); tab >= 0 {
			a.activeTab = tab
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		reload := a.saveSetupConfig()
		a.needSetup = false
		a.setupForm = nil
		if reload {
			a.loaded = false
			a.progress, a.progressMax = 0, 0
			return a, tea.Batch(loadDataCmd(a.dataDir, a.loadSub), a.spinner.Tick)
		}
		a.recompute()
		return a, nil
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  cashpulse needs at least %d columns.\n",
		a.width, minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ cashpulse"))
	b.WriteString(subtitleStyle.Render(" · Household Financial Health"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := max(20, min(40, a.width-30))
		pct := float64(a.progress) / float64(a.progressMax)
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Parsing snapshots\n\n"))
		b.WriteString(components.ProgressBar(pct, barW))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progress))))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progressMax))))
		b.WriteString(subtitleStyle.Render(" files"))
	} else {
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Discovering households..."))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	section := func(b *strings.Builder, title string, binds []struct{ key, desc string }) {
		b.WriteString(sectionStyle.Render(title))
		b.WriteString("\n")
		for _, bind := range binds {
			fmt.Fprintf(b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	section(&b, "Navigation", []struct{ key, desc string }{
		{"o p a h x", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Move through households"},
		{"[ ]", "Previous / Next household from any tab"},
		{"g G", "First / Last household"},
	})
	b.WriteString("\n")
	section(&b, "Actions", []struct{ key, desc string }{
		{"/", "Search households"},
		{"Enter", "Toggle detail / Edit setting"},
		{"Esc", "Back / Clear search"},
		{"r", "Reload snapshots"},
		{"R", "Toggle auto-refresh"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	})
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	pill := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	filter := pill.Render(" lookback ") + accent.Render(fmt.Sprintf("%dm", a.lookback()))
	if !a.opts.AsOf.IsZero() {
		filter += pill.Render(" │ as of ") + accent.Render(a.opts.AsOf.Format("2006-01"))
	}
	if a.household != "" {
		filter += pill.Render(" │ ") + accent.Render(a.household)
	}
	if r, ok := a.selected(); ok {
		filter += pill.Render(" │ viewing ") + accent.Render(r.HouseholdID)
	}
	filter += pill.Render(" ")

	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(filter)

	var middle string
	if a.stats.Scored > 0 {
		mean := int(a.stats.MeanScore + 0.5)
		middle = components.CompactScore("portfolio", mean, t.Class(health.Classify(mean)), 28)
	}
	statusBar := components.RenderStatusBar(w, middle, fmt.Sprintf("%.1fs", a.loadTime.Seconds()), a.refreshing, a.autoRefresh)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabProjection:
		content = a.renderProjectionTab(cw)
	case tabAlerts:
		content = a.renderAlertsTab(cw)
	case tabHouseholds:
		content = a.renderHouseholdsTab(cw, contentH)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) lookback() int {
	if a.opts.LookbackMonths > 0 {
		return a.opts.LookbackMonths
	}
	return health.DefaultLookbackMonths
}

// emptyState renders the card shown when there is nothing to score.
func (a App) emptyState(cw int) string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	var body string
	switch {
	case a.loadErr != nil:
		body = muted.Render("Could not load snapshots: " + a.loadErr.Error())
	case len(a.snaps) == 0:
		body = muted.Render("No household snapshots found under " + a.dataDir + "/households")
	default:
		body = muted.Render(fmt.Sprintf("No household scored. %d rejected, run `cashpulse validate`.", a.stats.Failed))
	}
	return components.ContentCard("Nothing to show", body, cw)
}

// ─── Helpers ────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// loadDataCmd starts the loading pipeline in a background goroutine. It
// streams ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(dataDir string, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			// Non-blocking so workers are never stalled; a skipped
			// update is caught up by the next one.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}

			snaps, fileErrs, err := loadSnapshots(dataDir, progressFn)
			sub <- DataLoadedMsg{Households: snaps, FileErrors: fileErrs, Err: err, LoadTime: time.Since(start)}
		}()

		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd reloads snapshots in the background with no progress UI.
func refreshDataCmd(dataDir string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		snaps, fileErrs, err := loadSnapshots(dataDir, nil)
		return RefreshDataMsg{Households: snaps, FileErrors: fileErrs, Err: err, LoadTime: time.Since(start)}
	}
}

// loadSnapshots prefers the incremental cached load and falls back to a
// full parse. It returns the number of rejected files alongside.
func loadSnapshots(dataDir string, progressFn pipeline.ProgressFunc) ([]model.Snapshot, int, error) {
	if cache, err := store.Open(pipeline.CachePath()); err == nil {
		cr, loadErr := pipeline.LoadWithCache(dataDir, cache, progressFn)
		_ = cache.Close()
		if loadErr == nil {
			return cr.Households, len(cr.Errors), nil
		}
	}

	result, err := pipeline.Load(dataDir, progressFn)
	if err != nil {
		return nil, 0, err
	}
	return result.Households, len(result.Errors), nil
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with the background
// color so gaps between cards are filled.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes use the same widths as RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++ // separator
		}
	}
	return -1
}
