package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/model"
)

var flagSeverity string

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List alerts and suggestions across households",
	RunE:  runAlerts,
}

func init() {
	alertsCmd.Flags().StringVar(&flagSeverity, "severity", "", "Minimum severity to show: critical, warning or info")
	rootCmd.AddCommand(alertsCmd)
}

// householdAlert is one alert row tagged with its household.
type householdAlert struct {
	HouseholdID string `json:"householdId"`
	Score       int    `json:"score"`
	model.HealthAlert
}

func runAlerts(_ *cobra.Command, _ []string) error {
	floor := model.SeverityInfo
	if flagSeverity != "" {
		floor = model.Severity(strings.ToLower(flagSeverity))
		switch floor {
		case model.SeverityCritical, model.SeverityWarning, model.SeverityInfo:
		default:
			return fmt.Errorf("invalid --severity %q: want critical, warning or info", flagSeverity)
		}
	}

	run, err := scoreHouseholds()
	if err != nil {
		return err
	}

	var rows []householdAlert
	for _, r := range run.score.Results {
		for _, a := range r.Alerts {
			if a.Severity.Rank() <= floor.Rank() {
				rows = append(rows, householdAlert{HouseholdID: r.HouseholdID, Score: r.Score, HealthAlert: a})
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if ri, rj := rows[i].Severity.Rank(), rows[j].Severity.Rank(); ri != rj {
			return ri < rj
		}
		if rows[i].Score != rows[j].Score {
			return rows[i].Score < rows[j].Score
		}
		return rows[i].HouseholdID < rows[j].HouseholdID
	})

	if flagJSON {
		if rows == nil {
			rows = []householdAlert{}
		}
		return printJSON(rows)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("ALERTS  %d across %d households", len(rows), len(run.score.Results))))
	fmt.Println()

	if len(rows) == 0 {
		fmt.Println("  " + cli.Muted("No alerts."))
		fmt.Println()
		return nil
	}

	t := cli.Table{Headers: []string{"Household", "Score", "Severity", "Alert"}}
	for _, a := range rows {
		t.Rows = append(t.Rows, []string{a.HouseholdID, fmt.Sprintf("%d", a.Score), string(a.Severity), a.Title})
	}
	fmt.Print(cli.RenderTable(t))

	// A single household also gets the actions and suggestions spelled out.
	if r, err := run.single(); err == nil {
		fmt.Println()
		for _, a := range r.Alerts {
			if a.Severity.Rank() > floor.Rank() {
				continue
			}
			fmt.Printf("  %s %s\n", cli.RenderSeverity(a.Severity), a.Description)
			fmt.Printf("      %s\n", cli.Muted(a.Action))
		}
		if len(r.Suggestions) > 0 {
			fmt.Println()
			fmt.Println("  " + cli.Header("Suggestions"))
			for _, s := range r.Suggestions {
				fmt.Printf("  [%s] %s: %s\n", s.Impact, s.Title, cli.Muted(s.Description))
			}
		}
	}
	fmt.Println()
	return nil
}
