package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cashpulse/internal/cli"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Monthly income and expense history in the lookback window",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(_ *cobra.Command, _ []string) error {
	run, err := scoreHouseholds()
	if err != nil {
		return err
	}
	r, err := run.single()
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(r.MonthlySeries)
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("HISTORY  %s  %d months", r.HouseholdID, len(r.MonthlySeries))))
	fmt.Println()

	if len(r.MonthlySeries) == 0 {
		fmt.Println("  " + cli.Muted("No income or expense transactions in the lookback window."))
		fmt.Println()
		return nil
	}

	t := cli.Table{Headers: []string{"Month", "Income", "Expenses", "Net Flow"}}
	var income, expenses, net []float64
	for _, m := range r.MonthlySeries {
		t.Rows = append(t.Rows, []string{
			m.Month,
			cli.FormatMoney(m.Income),
			cli.FormatMoney(m.Expenses),
			cli.RenderMoney(m.NetFlow),
		})
		income = append(income, m.Income)
		expenses = append(expenses, m.Expenses)
		net = append(net, m.NetFlow)
	}
	t.Rows = append(t.Rows, cli.Separator, []string{
		"Average",
		cli.FormatMoney(r.AvgMonthlyIncome),
		cli.FormatMoney(r.AvgMonthlyExpenses),
		cli.RenderMoney(r.AvgMonthlyIncome - r.AvgMonthlyExpenses),
	})
	fmt.Print(cli.RenderTable(t))
	fmt.Println()

	fmt.Printf("  Income    %s\n", cli.RenderSparkline(income))
	fmt.Printf("  Expenses  %s\n", cli.RenderSparkline(expenses))
	fmt.Printf("  Net       %s\n", cli.RenderSparkline(net))
	fmt.Printf("\n  Spending trend %s\n\n", cli.FormatSignedPercent(r.SpendingTrend))
	return nil
}
