package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/model"
)

var projectionCmd = &cobra.Command{
	Use:   "projection",
	Short: "Three-month forward cash projection",
	RunE:  runProjection,
}

func init() {
	rootCmd.AddCommand(projectionCmd)
}

func runProjection(_ *cobra.Command, _ []string) error {
	run, err := scoreHouseholds()
	if err != nil {
		return err
	}
	r, err := run.single()
	if err != nil {
		return err
	}
	p := r.FutureProjection
	if flagJSON {
		return printJSON(p)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("PROJECTION  " + r.HouseholdID))
	fmt.Println()

	t := cli.Table{Headers: []string{"Month", "Income", "Expenses", "Net", "Balance"}}
	t.Rows = append(t.Rows, []string{"now", "", "", "", cli.FormatMoney(r.TotalBalance)}, cli.Separator)
	balances := []float64{r.TotalBalance}
	for _, m := range p.Months {
		t.Rows = append(t.Rows, []string{
			m.Month,
			cli.FormatMoney(m.ProjectedIncome),
			cli.FormatMoney(m.ProjectedExpenses),
			cli.FormatMoney(m.ProjectedIncome - m.ProjectedExpenses),
			cli.RenderMoney(m.ProjectedBalance),
		})
		balances = append(balances, m.ProjectedBalance)
	}
	fmt.Print(cli.RenderTable(t))
	fmt.Println()
	fmt.Printf("  Trend  %s\n\n", cli.RenderSparkline(balances))

	if p.WillGoNegative && p.MonthsUntilNegative != nil {
		fmt.Printf("  %s Balance turns negative in month %d.\n\n",
			cli.RenderSeverity(model.SeverityCritical), *p.MonthsUntilNegative)
	} else {
		fmt.Println("  " + cli.Muted("Balance stays non-negative over the projection window."))
		fmt.Println()
	}
	return nil
}
