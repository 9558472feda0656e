package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cashpulse/internal/cli"
	"github.com/theirongolddev/cashpulse/internal/client"
	"github.com/theirongolddev/cashpulse/internal/config"
	"github.com/theirongolddev/cashpulse/internal/daemon"
	"github.com/theirongolddev/cashpulse/internal/pipeline"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonStateFile    string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
	flagDaemonLogLevel     string
	flagDaemonToken        string
	flagTokenSubject       string
	flagTokenTTL           time.Duration
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run a background health monitor with HTTP/SSE endpoints",
	Long: "Rescore every household on a schedule, publish score, classification and alert " +
		"changes as events, and serve results over HTTP. Critical alerts can be emailed.",
	RunE: runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and portfolio status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

var daemonTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the daemon API",
	RunE:  runDaemonToken,
}

func init() {
	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "127.0.0.1:8787", "HTTP listen address (default from config)")
	pf.DurationVar(&flagDaemonInterval, "interval", 15*time.Minute, "Polling interval (default from config)")
	pf.IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Max in-memory events retained (default from config)")
	pf.StringVar(&flagDaemonStateFile, "state-file", filepath.Join(pipeline.CacheDir(), "cashpulsed.json"), "Runtime state file (pid, address)")

	daemonCmd.Flags().StringVar(&flagDaemonLogFile, "log-file", filepath.Join(pipeline.CacheDir(), "cashpulsed.log"), "Log file for --detach")
	daemonCmd.Flags().StringVar(&flagDaemonLogLevel, "log-level", "", "debug, info, warn or error (default $CASHPULSE_LOG_LEVEL or info)")
	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run in the background")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonStatusCmd.Flags().StringVar(&flagDaemonToken, "token", "", "Bearer token (default $CASHPULSE_TOKEN, or minted from the configured secret)")
	daemonTokenCmd.Flags().StringVar(&flagTokenSubject, "subject", "cli", "Token subject")
	daemonTokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", 24*time.Hour, "Token lifetime")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd, daemonTokenCmd)
	rootCmd.AddCommand(daemonCmd)
}

// applyDaemonDefaults fills flags the user did not set from the [daemon]
// config section.
func applyDaemonDefaults(cmd *cobra.Command) {
	flags := cmd.Flags()
	if !flags.Changed("addr") && appCfg.Daemon.Addr != "" {
		flagDaemonAddr = appCfg.Daemon.Addr
	}
	if !flags.Changed("interval") && appCfg.Daemon.Interval.Duration > 0 {
		flagDaemonInterval = appCfg.Daemon.Interval.Duration
	}
	if !flags.Changed("events-buffer") && appCfg.Daemon.EventsBuffer > 0 {
		flagDaemonEventsBuffer = appCfg.Daemon.EventsBuffer
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	applyDaemonDefaults(cmd)
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("--detach and --child are exclusive")
	}
	if err := claimDaemonState(flagDaemonStateFile); err != nil {
		return err
	}

	if flagDaemonDetach {
		pid, err := spawnDetached(flagDaemonLogFile)
		if err != nil {
			return err
		}
		fmt.Printf("  Started daemon (pid %d)\n", pid)
		fmt.Printf("  API: http://%s/v1/status\n", flagDaemonAddr)
		fmt.Printf("  Log: %s\n", flagDaemonLogFile)
		return nil
	}
	return runDaemonForeground()
}

// newDaemonService builds the service from flags and config.
func newDaemonService() (*daemon.Service, error) {
	opts, err := scoringOptions()
	if err != nil {
		return nil, err
	}

	cfg := daemon.Config{
		DataDir:      dataDir,
		Household:    flagHousehold,
		Options:      opts,
		UseCache:     !flagNoCache,
		Interval:     flagDaemonInterval,
		Addr:         flagDaemonAddr,
		EventsBuffer: flagDaemonEventsBuffer,
		JWTSecret:    config.GetJWTSecret(appCfg),
		Logger:       daemon.NewLogger(flagDaemonLogLevel),
	}
	if appCfg.Notify.Enabled {
		n, err := daemon.NewEmailNotifier(daemon.SMTPConfig{
			Host:     appCfg.Notify.SMTPHost,
			Port:     appCfg.Notify.SMTPPort,
			Username: appCfg.Notify.Username,
			Password: config.GetSMTPPassword(appCfg),
			From:     appCfg.Notify.From,
			To:       appCfg.Notify.To,
		})
		if err != nil {
			return nil, fmt.Errorf("email notifications: %w", err)
		}
		cfg.Notifier = n
	}
	return daemon.New(cfg), nil
}

func runDaemonForeground() error {
	svc, err := newDaemonService()
	if err != nil {
		return err
	}

	st := daemonState{
		PID:       os.Getpid(),
		Addr:      flagDaemonAddr,
		StartedAt: time.Now(),
		DataDir:   dataDir,
		Household: flagHousehold,
	}
	if flagDaemonChild {
		st.LogFile = flagDaemonLogFile
	}
	if err := writeDaemonState(flagDaemonStateFile, st); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagDaemonStateFile) }()

	fmt.Printf("  cashpulse daemon listening on http://%s\n", flagDaemonAddr)
	fmt.Printf("  Polling every %s from %s\n", flagDaemonInterval, dataDir)
	if config.GetJWTSecret(appCfg) != "" {
		fmt.Println("  API requires a bearer token: cashpulse daemon token")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	st, err := readDaemonState(flagDaemonStateFile)
	if errors.Is(err, errDaemonNotRunning) {
		fmt.Println("  Daemon: not running")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("  Daemon PID: %d (up %s)\n", st.PID, time.Since(st.StartedAt).Round(time.Second))
	fmt.Printf("  Address:    http://%s\n", st.Addr)
	fmt.Printf("  Data:       %s\n", st.DataDir)
	if st.LogFile != "" {
		fmt.Printf("  Log:        %s\n", st.LogFile)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status, err := client.New(st.Addr, daemonToken()).Status(ctx)
	if err != nil {
		fmt.Printf("  API: %v\n", err)
		return nil
	}

	if status.LastPollAt.IsZero() {
		fmt.Println("  Last poll:  pending")
	} else {
		fmt.Printf("  Last poll:  %s (#%d)\n", status.LastPollAt.Local().Format(time.RFC3339), status.PollCount)
	}
	sum := status.Summary
	fmt.Printf("  Households: %d scored, %d rejected\n", sum.Scored, sum.Failed)
	fmt.Printf("  Score:      mean %.1f, range %d-%d\n", sum.MeanScore, sum.MinScore, sum.MaxScore)
	fmt.Printf("  At risk:    %d projected negative, %d with critical alerts\n", sum.AtRisk, sum.WithCritical)
	fmt.Printf("  Balance:    %s\n", cli.FormatMoney(sum.TotalBalance))
	if status.LastError != "" {
		fmt.Printf("  Last error: %s\n", status.LastError)
	}
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	st, err := readDaemonState(flagDaemonStateFile)
	if err != nil {
		return err
	}
	if err := stopProcess(st.PID, 8*time.Second); err != nil {
		return err
	}
	_ = os.Remove(flagDaemonStateFile)
	fmt.Printf("  Stopped daemon (pid %d)\n", st.PID)
	return nil
}

// daemonToken picks the bearer token for API calls: the flag, then
// CASHPULSE_TOKEN, then a short-lived token signed with the local secret.
func daemonToken() string {
	if flagDaemonToken != "" {
		return flagDaemonToken
	}
	if tok := os.Getenv("CASHPULSE_TOKEN"); tok != "" {
		return tok
	}
	secret := config.GetJWTSecret(appCfg)
	if secret == "" {
		return ""
	}
	tok, err := daemon.IssueToken([]byte(secret), "cli", time.Minute)
	if err != nil {
		return ""
	}
	return tok
}

func runDaemonToken(_ *cobra.Command, _ []string) error {
	secret := config.GetJWTSecret(appCfg)
	if secret == "" {
		return errors.New("no signing secret: set CASHPULSE_JWT_SECRET or [daemon] jwt_secret")
	}
	tok, err := daemon.IssueToken([]byte(secret), flagTokenSubject, flagTokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Println(tok)
	return nil
}
