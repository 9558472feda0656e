package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/pipeline"
)

var flagClass string

var householdsCmd = &cobra.Command{
	Use:     "households",
	Aliases: []string{"ls"},
	Short:   "Rank households from weakest to strongest",
	RunE:    runHouseholds,
}

func init() {
	householdsCmd.Flags().StringVar(&flagClass, "class", "", "Only show one band (Excellent, Good, Fair, Poor, Critical)")
	rootCmd.AddCommand(householdsCmd)
}

func runHouseholds(_ *cobra.Command, _ []string) error {
	run, err := scoreHouseholds()
	if err != nil {
		return err
	}

	results := pipeline.FilterByClass(run.score.Results, model.Classification(flagClass))
	rows := pipeline.Rank(results)
	if flagJSON {
		return printJSON(rows)
	}

	title := fmt.Sprintf("HOUSEHOLDS  %d scored", len(rows))
	if flagClass != "" {
		title += "  " + flagClass
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Println()

	if len(rows) == 0 {
		fmt.Println("  " + cli.Muted("No households match."))
		fmt.Println()
		return nil
	}
	fmt.Print(cli.RenderTable(householdTable(rows)))
	if n := len(run.score.Failures) + len(run.load.Errors); n > 0 {
		fmt.Printf("\n  %s\n", cli.Muted(fmt.Sprintf("%d rejected, run `cashpulse validate` for details", n)))
	}
	fmt.Println()
	return nil
}
