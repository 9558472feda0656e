package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cashpulse/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data directory:  %s\n", dataDir)
	fmt.Printf("    Lookback months: %d\n", cfg.General.LookbackMonths)
	fmt.Printf("    Currency:        %s\n", cfg.General.Currency)
	if cfg.General.Household != "" {
		fmt.Printf("    Household:       %s\n", cfg.General.Household)
	}
	fmt.Println()

	fmt.Println("  [Scoring]")
	if _, err := cfg.Scoring.Weights(); err != nil {
		fmt.Printf("    Weights: invalid (%v)\n", err)
	}
	fmt.Printf("    Liquidity:    %.2f\n", cfg.Scoring.Liquidity)
	fmt.Printf("    Savings rate: %.2f\n", cfg.Scoring.SavingsRate)
	fmt.Printf("    Trend:        %.2f\n", cfg.Scoring.Trend)
	fmt.Printf("    Future risk:  %.2f\n", cfg.Scoring.FutureRisk)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:       %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Poll interval: %s\n", cfg.Daemon.Interval.Duration)
	fmt.Printf("    Events buffer: %d\n", cfg.Daemon.EventsBuffer)
	fmt.Printf("    JWT secret:    %s\n", maskSecret(config.GetJWTSecret(cfg)))
	fmt.Println()

	fmt.Println("  [Notify]")
	if cfg.Notify.Enabled {
		fmt.Printf("    SMTP server: %s:%d\n", cfg.Notify.SMTPHost, cfg.Notify.SMTPPort)
		fmt.Printf("    Username:    %s\n", cfg.Notify.Username)
		fmt.Printf("    Password:    %s\n", maskSecret(config.GetSMTPPassword(cfg)))
		fmt.Printf("    From:        %s\n", cfg.Notify.From)
		fmt.Printf("    To:          %s\n", strings.Join(cfg.Notify.To, ", "))
	} else {
		fmt.Println("    Email alerts: disabled")
	}
	fmt.Println()

	fmt.Println("  [TUI]")
	fmt.Printf("    Auto refresh:     %v\n", cfg.TUI.AutoRefresh)
	fmt.Printf("    Refresh interval: %ds\n", cfg.TUI.RefreshIntervalSec)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `cashpulse setup` to reconfigure.")
	return nil
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return "not configured"
	case len(s) > 16:
		return s[:4] + "..." + s[len(s)-4:]
	default:
		return "****"
	}
}
