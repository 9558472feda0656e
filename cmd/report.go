package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/client"
	"github.com/theirongolddev/cashpulse/internal/health"
	"github.com/theirongolddev/cashpulse/internal/model"
	"github.com/theirongolddev/cashpulse/internal/pipeline"
)

var (
	flagRemote      bool
	flagRemoteAddr  string
	flagRemoteToken string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Health report for one household, or a portfolio summary",
	RunE:  runReport,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, reportCmd} {
		c.Flags().BoolVar(&flagRemote, "remote", false, "Fetch results from a running daemon instead of scoring locally")
		c.Flags().StringVar(&flagRemoteAddr, "addr", "", "Daemon address for --remote (default from config)")
		c.Flags().StringVar(&flagRemoteToken, "token", "", "Bearer token for --remote")
	}
	rootCmd.AddCommand(reportCmd)
}

func runReport(_ *cobra.Command, _ []string) error {
	if flagRemote {
		return runRemoteReport()
	}

	run, err := scoreHouseholds()
	if err != nil {
		return err
	}

	if len(run.score.Results) == 0 && flagHousehold == "" {
		if flagJSON {
			return printJSON([]model.FinancialHealthResult{})
		}
		fmt.Println("\n  No household snapshots found.")
		fmt.Printf("  Put JSONL files under %s\n", cli.Muted(dataDir+"/households/"))
		return nil
	}

	r, err := run.single()
	if err == nil {
		if flagJSON {
			return printJSON(r)
		}
		printHouseholdReport(r)
		return nil
	}
	if flagHousehold != "" && len(run.score.Results) == 0 {
		return err
	}

	stats := pipeline.Summarize(run.score.Results, len(run.score.Failures)+len(run.load.Errors))
	rows := pipeline.Rank(run.score.Results)
	if flagJSON {
		return printJSON(struct {
			Stats      model.PortfolioStats   `json:"stats"`
			Households []model.HouseholdScore `json:"households"`
		}{stats, rows})
	}
	printPortfolio(stats, rows)
	return nil
}

func runRemoteReport() error {
	addr := flagRemoteAddr
	if addr == "" {
		addr = appCfg.Daemon.Addr
	}
	token := flagRemoteToken
	if token == "" {
		token = os.Getenv("CASHPULSE_TOKEN")
	}
	c := client.New(addr, token)
	ctx := context.Background()

	if flagHousehold != "" {
		r, err := c.Household(ctx, flagHousehold)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(r)
		}
		printHouseholdReport(*r)
		return nil
	}

	rows, err := c.Households(ctx, "")
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(rows)
	}
	fmt.Println()
	fmt.Println(cli.RenderTitle("HOUSEHOLDS  via " + addr))
	fmt.Println()
	fmt.Print(cli.RenderTable(householdTable(rows)))
	return nil
}

func printHouseholdReport(r model.FinancialHealthResult) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("FINANCIAL HEALTH  %s", r.HouseholdID)))
	fmt.Println()

	fmt.Printf("  Score  %s  %s\n", cli.Header(cli.FormatScore(r.Score)), cli.RenderClass(r.Classification))
	fmt.Printf("  %s\n\n", cli.RenderScoreBar(float64(r.Score), 50, r.Classification))

	rows := [][]string{
		{"Total Balance", cli.FormatMoney(r.TotalBalance)},
		{"Assets", cli.FormatMoney(r.TotalAssets)},
		{"Liabilities", cli.FormatMoney(r.TotalLiabilities)},
		cli.Separator,
		{"Avg Monthly Income", cli.FormatMoney(r.AvgMonthlyIncome)},
		{"Avg Monthly Expenses", cli.FormatMoney(r.AvgMonthlyExpenses)},
		{"Months of History", fmt.Sprintf("%d", r.MonthsOfHistory)},
		cli.Separator,
		{"Months of Reserve", cli.FormatMonths(r.MonthsOfReserve)},
		{"Savings Rate", cli.FormatPercent(r.SavingsRate)},
		{"Spending Trend", cli.FormatSignedPercent(r.SpendingTrend)},
	}
	fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Metric", "Value"}, Rows: rows}))
	fmt.Println()

	printFactorBars(r.Factors)
	fmt.Println()
	printProjection(r.FutureProjection)

	if len(r.Alerts) > 0 {
		fmt.Println()
		fmt.Println("  " + cli.Header("Alerts"))
		for _, a := range r.Alerts {
			fmt.Printf("  %s %s\n", cli.RenderSeverity(a.Severity), a.Title)
			fmt.Printf("      %s\n", cli.Muted(a.Action))
		}
	}
	if len(r.Suggestions) > 0 {
		fmt.Println()
		fmt.Println("  " + cli.Header("Suggestions"))
		for _, s := range r.Suggestions {
			fmt.Printf("  [%s] %s\n", s.Impact, s.Title)
			fmt.Printf("      %s\n", cli.Muted(s.Description))
		}
	}
	fmt.Println()
}

func printFactorBars(f model.ScoreFactors) {
	fmt.Println("  " + cli.Header("Factors"))
	for _, fc := range []model.Factor{model.FactorLiquidity, model.FactorSavings, model.FactorTrend, model.FactorFutureRisk} {
		v := f.Get(fc)
		fmt.Printf("  %-16s %s %5.1f\n", pipeline.FactorLabels[fc], cli.RenderScoreBar(v, 30, classForFactor(v)), v)
	}
}

// classForFactor tints a sub-score with the band an overall score of the
// same value would get.
func classForFactor(v float64) model.Classification {
	return health.Classify(int(v + 0.5))
}

func printProjection(p model.FutureProjection) {
	fmt.Println("  " + cli.Header("Projection"))
	for _, m := range p.Months {
		fmt.Printf("  %-8s %s\n", m.Month, cli.RenderMoney(m.ProjectedBalance))
	}
	if p.WillGoNegative && p.MonthsUntilNegative != nil {
		fmt.Printf("  %s balance goes negative in month %d\n",
			cli.RenderSeverity(model.SeverityCritical), *p.MonthsUntilNegative)
	}
}

func printPortfolio(stats model.PortfolioStats, rows []model.HouseholdScore) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("PORTFOLIO  %d households", stats.Households)))
	fmt.Println()

	summary := [][]string{
		{"Scored", fmt.Sprintf("%d", stats.Scored)},
		{"Failed", fmt.Sprintf("%d", stats.Failed)},
		{"Mean Score", fmt.Sprintf("%.1f", stats.MeanScore)},
		{"Range", fmt.Sprintf("%d - %d", stats.MinScore, stats.MaxScore)},
		cli.Separator,
		{"Projected Shortfall", fmt.Sprintf("%d", stats.AtRisk)},
		{"With Critical Alerts", fmt.Sprintf("%d", stats.WithCritical)},
		cli.Separator,
		{"Total Balance", cli.FormatMoney(stats.TotalBalance)},
		{"Total Debt", cli.FormatMoney(stats.TotalDebt)},
	}
	fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Metric", "Value"}, Rows: summary}))
	fmt.Println()

	maxCount := 0
	for _, n := range stats.ByClass {
		maxCount = max(maxCount, n)
	}
	for _, c := range model.Classifications {
		n := stats.ByClass[c]
		fmt.Printf("%s %d\n", cli.RenderHorizontalBar(string(c), float64(n), float64(maxCount), 30, cli.ClassColor(c)), n)
	}
	fmt.Println()

	fmt.Print(cli.RenderTable(householdTable(rows)))
}

func householdTable(rows []model.HouseholdScore) cli.Table {
	t := cli.Table{Headers: []string{"Household", "Score", "Class", "Balance", "Alerts", "Shortfall"}}
	for _, r := range rows {
		alerts := fmt.Sprintf("%d", r.Alerts)
		if r.Critical > 0 {
			alerts = fmt.Sprintf("%d (%d crit)", r.Alerts, r.Critical)
		}
		shortfall := ""
		if r.WillGoNegative {
			shortfall = "yes"
		}
		t.Rows = append(t.Rows, []string{
			r.HouseholdID,
			fmt.Sprintf("%d", r.Score),
			string(r.Classification),
			cli.FormatMoney(r.TotalBalance),
			alerts,
			shortfall,
		})
	}
	return t
}
