package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/pipeline"
)

var factorsCmd = &cobra.Command{
	Use:   "factors",
	Short: "Break the health score down by factor",
	RunE:  runFactors,
}

func init() {
	rootCmd.AddCommand(factorsCmd)
}

func runFactors(_ *cobra.Command, _ []string) error {
	run, err := scoreHouseholds()
	if err != nil {
		return err
	}
	r, err := run.single()
	if err != nil {
		return err
	}

	rows := pipeline.FactorBreakdown(r.Factors, run.opts.Weights)
	if flagJSON {
		return printJSON(rows)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SCORE FACTORS  %s  %s", r.HouseholdID, cli.FormatScore(r.Score))))
	fmt.Println()

	t := cli.Table{
		Headers: []string{"Factor", "Weight", "Score", "Points", "Lost"},
		Widths:  []int{16, 8, 8, 10, 8},
	}
	var total, lost float64
	for _, fc := range rows {
		t.Rows = append(t.Rows, []string{
			fc.Label,
			fmt.Sprintf("%.0f%%", fc.Weight*100),
			fmt.Sprintf("%.1f", fc.Score),
			fmt.Sprintf("%.1f / %.0f", fc.Points, fc.MaxPoints),
			fmt.Sprintf("%.1f", fc.Lost),
		})
		total += fc.Points
		lost += fc.Lost
	}
	t.Rows = append(t.Rows, cli.Separator, []string{"Total", "", "", fmt.Sprintf("%.1f", total), fmt.Sprintf("%.1f", lost)})
	fmt.Print(cli.RenderTable(t))
	fmt.Println()

	for _, fc := range rows {
		fmt.Printf("  %-16s %s\n", fc.Label, cli.RenderScoreBar(fc.Score, 40, classForFactor(fc.Score)))
	}
	fmt.Println()
	return nil
}
