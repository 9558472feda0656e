// Package cmd implements the cashpulse CLI commands.
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/config"
	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/pipeline"
	"github.com/theirongolddev/cashpulse/internal/store"
)

var (
	flagDataDir   string
	flagHousehold string
	flagAsOf      string
	flagLookback  int
	flagNoCache   bool
	flagQuiet     bool
	flagJSON      bool
)

// appCfg and dataDir are resolved once per invocation before any command runs.
var (
	appCfg  config.Config
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:   "cashpulse",
	Short: "Household financial health scoring",
	Long: "Score household finances from account and transaction snapshots: " +
		"a 0-100 health score, a three-month cash projection, alerts and suggestions.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runReport,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Snapshot data directory (default from config or ~/.local/share/cashpulse)")
	rootCmd.PersistentFlags().StringVarP(&flagHousehold, "household", "H", "", "Filter to household (substring match)")
	rootCmd.PersistentFlags().StringVar(&flagAsOf, "as-of", "", "Anchor month YYYY-MM (default: latest transaction)")
	rootCmd.PersistentFlags().IntVarP(&flagLookback, "lookback", "l", 0, "Lookback window in months (default from config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip SQLite cache, reparse everything")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
}

func loadConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		// A broken config should not stop read-only commands.
		fmt.Fprintf(os.Stderr, "  Warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	appCfg = cfg
	dataDir = config.ResolveDataDir(flagDataDir, cfg)
	if cfg.General.Currency != "" {
		cli.Currency = cfg.General.Currency
	}
	if flagHousehold == "" {
		flagHousehold = cfg.General.Household
	}
	return nil
}

// scoringOptions builds engine options from config and flags.
func scoringOptions() (health.Options, error) {
	w, err := appCfg.Scoring.Weights()
	if err != nil {
		return health.Options{}, err
	}
	opts := health.Options{
		LookbackMonths: appCfg.General.LookbackMonths,
		Weights:        w,
	}
	if flagLookback > 0 {
		opts.LookbackMonths = flagLookback
	}
	if flagAsOf != "" {
		t, err := parseMonth(flagAsOf)
		if err != nil {
			return opts, err
		}
		opts.AsOf = t
	}
	return opts, nil
}

func parseMonth(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --as-of %q: want YYYY-MM", s)
}

// openCache opens the SQLite cache unless --no-cache is set. It returns
// nil when caching is off or unavailable.
func openCache() *store.Cache {
	if flagNoCache {
		return nil
	}
	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Cache unavailable, doing full parse\n")
		}
		return nil
	}
	return cache
}

// loadData is the shared data loading path used by all commands.
// Uses SQLite cache when available for fast subsequent runs.
func loadData(cache *store.Cache) (*pipeline.LoadResult, error) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning %s...\n", dataDir)
	}

	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		if current%50 == 0 || current == total {
			fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", current, total)
		}
	}

	if cache != nil {
		cr, err := pipeline.LoadWithCache(dataDir, cache, progressFn)
		if err == nil {
			if !flagQuiet && cr.TotalFiles > 0 {
				if cr.Reparsed == 0 {
					fmt.Fprintf(os.Stderr, "\r  Loaded %d households from cache    \n", cr.HouseholdCount)
				} else {
					fmt.Fprintf(os.Stderr, "\r  %d cached + %d reparsed (%d households)    \n",
						cr.CacheHits, cr.Reparsed, cr.HouseholdCount)
				}
			}
			return &cr.LoadResult, nil
		}
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "\n  Cache error, falling back to full parse\n")
		}
	}

	result, err := pipeline.Load(dataDir, progressFn)
	if err != nil {
		return nil, err
	}
	if !flagQuiet && result.TotalFiles > 0 {
		fmt.Fprintf(os.Stderr, "\r  Parsed %d files across %d households    \n",
			result.ParsedFiles, result.HouseholdCount)
	}
	return result, nil
}

// scored bundles a loaded and scored run for the report-style commands.
type scored struct {
	load   *pipeline.LoadResult
	score  pipeline.ScoreResult
	opts   health.Options
	allIDs []string
}

// scoreHouseholds loads every snapshot, applies --household, and scores.
func scoreHouseholds() (*scored, error) {
	opts, err := scoringOptions()
	if err != nil {
		return nil, err
	}

	cache := openCache()
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	load, err := loadData(cache)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(load.Households))
	for _, h := range load.Households {
		ids = append(ids, h.HouseholdID)
	}

	snaps := pipeline.FilterByHousehold(load.Households, flagHousehold)

	// A nil *store.Cache must not become a non-nil interface.
	var rc pipeline.ResultCache
	if cache != nil {
		rc = cache
	}
	res := pipeline.ScoreAll(snaps, opts, rc, nil)

	printLoadWarnings(load, res)
	return &scored{load: load, score: res, opts: opts, allIDs: ids}, nil
}

func printLoadWarnings(load *pipeline.LoadResult, res pipeline.ScoreResult) {
	if flagQuiet {
		return
	}
	for _, fe := range load.Errors {
		fmt.Fprintf(os.Stderr, "  Skipped %v\n", fe)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(os.Stderr, "  Skipped household %s: %v\n", f.HouseholdID, f.Err)
	}
}

var errNoHouseholds = errors.New("no households found")

// single picks the one household a detail command should show: an exact
// --household match, else the only result.
func (s *scored) single() (model.FinancialHealthResult, error) {
	results := s.score.Results
	if len(results) == 0 {
		if flagHousehold != "" {
			if hints := pipeline.SuggestHousehold(s.allIDs, flagHousehold, 3); len(hints) > 0 {
				return model.FinancialHealthResult{}, fmt.Errorf("household %q not found (did you mean %v?)", flagHousehold, hints)
			}
			return model.FinancialHealthResult{}, fmt.Errorf("household %q not found", flagHousehold)
		}
		return model.FinancialHealthResult{}, fmt.Errorf("%w in %s", errNoHouseholds, dataDir)
	}
	for _, r := range results {
		if r.HouseholdID == flagHousehold {
			return r, nil
		}
	}
	if len(results) == 1 {
		return results[0], nil
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.HouseholdID)
	}
	sort.Strings(ids)
	return model.FinancialHealthResult{}, fmt.Errorf("%d households match; pick one with --household (%v)", len(ids), ids)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
