package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/config"
	"github.com/theirongolddev/cashpulse/internal/pipeline"
	"github.com/theirongolddev/cashpulse/internal/tui/components"
	"github.com/theirongolddev/cashpulse/internal/tui/theme"
)

const (
	settingsFieldLookback = iota
	settingsFieldCurrency
	settingsFieldTheme
	settingsFieldAutoRefresh
	settingsFieldRefreshInterval
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool
	saveErr error
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 40
	return ti
}

func (a App) settingsStartEdit() (tea.Model, tea.Cmd) {
	cfg := loadConfigOrDefault()
	a.settings.editing = true
	a.settings.saved = false
	a.settings.saveErr = nil

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldLookback:
		ti.Placeholder = "6 (months, 1-60)"
		ti.SetValue(strconv.Itoa(a.lookback()))
	case settingsFieldCurrency:
		ti.Placeholder = "$"
		ti.SetValue(cli.Currency)
	case settingsFieldTheme:
		ti.Placeholder = strings.Join(theme.Names(), ", ")
		ti.SetValue(cfg.Appearance.Theme)
	case settingsFieldAutoRefresh:
		ti.Placeholder = "true or false"
		ti.SetValue(strconv.FormatBool(a.autoRefresh))
	case settingsFieldRefreshInterval:
		ti.Placeholder = "60 (seconds, minimum 10)"
		ti.SetValue(strconv.Itoa(int(a.refreshInterval.Seconds())))
	}

	ti.Focus()
	a.settings.input = ti
	return a, ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.settingsSave()
		a.settings.editing = false
		a.settings.saved = a.settings.saveErr == nil
		return a, nil
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave validates the edited field, applies it to the running
// dashboard and persists it. An invalid value sets saveErr and leaves the
// config untouched.
func (a *App) settingsSave() {
	cfg := loadConfigOrDefault()
	val := strings.TrimSpace(a.settings.input.Value())

	switch a.settings.cursor {
	case settingsFieldLookback:
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 || n > 60 {
			a.settings.saveErr = fmt.Errorf("lookback must be 1-60 months, got %q", val)
			return
		}
		cfg.General.LookbackMonths = n
		a.opts.LookbackMonths = n
		a.recompute()
	case settingsFieldCurrency:
		if n := utf8.RuneCountInString(val); n == 0 || n > 4 {
			a.settings.saveErr = fmt.Errorf("currency must be 1-4 characters")
			return
		}
		cfg.General.Currency = val
		cli.Currency = val
	case settingsFieldTheme:
		if theme.ByName(val).Name != val {
			a.settings.saveErr = fmt.Errorf("unknown theme %q", val)
			return
		}
		cfg.Appearance.Theme = val
		theme.SetActive(val)
	case settingsFieldAutoRefresh:
		b, err := strconv.ParseBool(val)
		if err != nil {
			a.settings.saveErr = fmt.Errorf("auto refresh must be true or false")
			return
		}
		cfg.TUI.AutoRefresh = b
		a.autoRefresh = b
	case settingsFieldRefreshInterval:
		n, err := strconv.Atoi(val)
		if err != nil || time.Duration(n)*time.Second < minRefresh {
			a.settings.saveErr = fmt.Errorf("interval must be at least %d seconds", int(minRefresh.Seconds()))
			return
		}
		cfg.TUI.RefreshIntervalSec = n
		a.refreshInterval = time.Duration(n) * time.Second
	}

	a.settings.saveErr = config.Save(cfg)
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active
	cfg := loadConfigOrDefault()

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	fields := []struct{ label, value string }{
		{"Lookback", fmt.Sprintf("%d months", a.lookback())},
		{"Currency", cli.Currency},
		{"Theme", cfg.Appearance.Theme},
		{"Auto Refresh", strconv.FormatBool(a.autoRefresh)},
		{"Refresh Interval", fmt.Sprintf("%ds", int(a.refreshInterval.Seconds()))},
	}

	innerW := components.CardInnerWidth(cw)
	var form strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			form.WriteString(markerStyle.Render("▸ "))
			form.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f.label)))
			form.WriteString(a.settings.input.View())
			form.WriteString("\n")
			continue
		}
		if i == a.settings.cursor {
			line := markerStyle.Render("▸ ") +
				selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f.label+":")) +
				selectedStyle.Render(f.value)
			if pad := innerW - lipgloss.Width(line); pad > 0 {
				line += lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad))
			}
			form.WriteString(line)
		} else {
			form.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			form.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f.label+":")))
			form.WriteString(valueStyle.Render(f.value))
		}
		form.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		form.WriteString("\n" + warn.Render("Not saved: "+a.settings.saveErr.Error()))
	} else if a.settings.saved {
		form.WriteString("\n" + greenStyle.Render("Saved!"))
	}
	form.WriteString("\n" + labelStyle.Render("[j/k] navigate  [Enter] edit  [Esc] cancel"))

	w := a.weights()
	info := []string{
		labelStyle.Render("Data directory:  ") + valueStyle.Render(a.dataDir),
		labelStyle.Render("Households:      ") + valueStyle.Render(cli.FormatNumber(int64(len(a.snaps)))),
		labelStyle.Render("Rejected:        ") + valueStyle.Render(cli.FormatNumber(int64(a.stats.Failed))),
		labelStyle.Render("Load time:       ") + valueStyle.Render(fmt.Sprintf("%.1fs", a.loadTime.Seconds())),
		labelStyle.Render("Weights:         ") + valueStyle.Render(fmt.Sprintf("liquidity %.2f  savings %.2f  trend %.2f  risk %.2f",
			w.Liquidity, w.SavingsRate, w.Trend, w.FutureRisk)),
		labelStyle.Render("Config file:     ") + valueStyle.Render(config.ConfigPath()),
		labelStyle.Render("Cache:           ") + valueStyle.Render(pipeline.CachePath()),
	}

	return components.ContentCard("Settings", form.String(), cw) + "\n" +
		components.ContentCard("General", strings.Join(info, "\n"), cw)
}
