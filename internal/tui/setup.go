package tui

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/huh"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/config"
	"github.com/theirongolddev/cashpulse/internal/tui/theme"
)

// SetupValues holds the answers collected by the first-run form.
type SetupValues struct {
	DataDir  string
	Lookback int
	Currency string
	Theme    string
}

var lookbackChoices = []int{3, 6, 12}

// SetupDefaults seeds the form from the current config and data directory.
func SetupDefaults(cfg config.Config, dataDir string) SetupValues {
	return SetupValues{
		DataDir:  dataDir,
		Lookback: cfg.General.LookbackMonths,
		Currency: cfg.General.Currency,
		Theme:    cfg.Appearance.Theme,
	}
}

// NewSetupForm builds the setup wizard. households is the number of
// households already found, shown in the welcome note.
func NewSetupForm(households int, vals *SetupValues) *huh.Form {
	welcome := "Let's set up a few things."
	if households > 0 {
		welcome = fmt.Sprintf("Found %d households in %s.\n%s", households, vals.DataDir, welcome)
	}

	lookbackOpts := make([]huh.Option[int], 0, len(lookbackChoices)+1)
	known := false
	for _, m := range lookbackChoices {
		lookbackOpts = append(lookbackOpts, huh.NewOption(fmt.Sprintf("%d months", m), m))
		known = known || m == vals.Lookback
	}
	if !known && vals.Lookback > 0 {
		lookbackOpts = append(lookbackOpts, huh.NewOption(fmt.Sprintf("%d months (current)", vals.Lookback), vals.Lookback))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to cashpulse").
				Description(welcome),
			huh.NewInput().
				Title("Data directory").
				Description("Holds households/<id>.jsonl snapshot files").
				Value(&vals.DataDir).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("data directory is required")
					}
					return nil
				}),
			huh.NewSelect[int]().
				Title("Lookback window").
				Description("Months of history averaged into income and expenses").
				Options(lookbackOpts...).
				Value(&vals.Lookback),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Currency symbol").
				CharLimit(4).
				Value(&vals.Currency).
				Validate(func(s string) error {
					if n := utf8.RuneCountInString(strings.TrimSpace(s)); n == 0 || n > 4 {
						return errors.New("use 1 to 4 characters")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&vals.Theme),
		),
	).WithShowHelp(true)
}

// Apply writes the answers into cfg.
func (v SetupValues) Apply(cfg *config.Config) {
	cfg.General.DataDir = strings.TrimSpace(v.DataDir)
	if v.Lookback > 0 {
		cfg.General.LookbackMonths = v.Lookback
	}
	if c := strings.TrimSpace(v.Currency); c != "" {
		cfg.General.Currency = c
	}
	cfg.Appearance.Theme = theme.ByName(v.Theme).Name
}

// saveSetupConfig persists the form answers and applies them to the
// running dashboard. It reports whether the data directory changed.
func (a *App) saveSetupConfig() bool {
	cfg := loadConfigOrDefault()
	a.setupVals.Apply(&cfg)
	_ = config.Save(cfg)

	theme.SetActive(cfg.Appearance.Theme)
	cli.Currency = cfg.General.Currency
	a.opts.LookbackMonths = cfg.General.LookbackMonths

	if dir := config.ResolveDataDir("", cfg); dir != a.dataDir {
		a.dataDir = dir
		return true
	}
	return false
}
