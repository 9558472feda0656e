package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/cashpulse/internal/health"
)

func TestLoadFrom_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.General.LookbackMonths != 6 {
		t.Fatalf("LookbackMonths = %d, want 6", cfg.General.LookbackMonths)
	}
	if cfg.Daemon.Interval.Duration != 15*time.Minute {
		t.Fatalf("Interval = %v, want 15m", cfg.Daemon.Interval)
	}
}

func TestLoadFrom_ParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[general]
data_dir = "/srv/finance"
lookback_months = 12
currency = "€"

[scoring]
liquidity = 0.4
savings_rate = 0.2
trend = 0.1
future_risk = 0.3

[daemon]
addr = ":9000"
interval = "1h"

[notify]
enabled = true
to = ["a@example.com", "b@example.com"]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.General.DataDir != "/srv/finance" || cfg.General.LookbackMonths != 12 || cfg.General.Currency != "€" {
		t.Fatalf("General = %+v", cfg.General)
	}
	if cfg.Daemon.Addr != ":9000" || cfg.Daemon.Interval.Duration != time.Hour {
		t.Fatalf("Daemon = %+v", cfg.Daemon)
	}
	if cfg.Daemon.EventsBuffer != 200 {
		t.Fatalf("EventsBuffer = %d, want default 200", cfg.Daemon.EventsBuffer)
	}
	if !cfg.Notify.Enabled || len(cfg.Notify.To) != 2 {
		t.Fatalf("Notify = %+v", cfg.Notify)
	}

	w, err := cfg.Scoring.Weights()
	if err != nil {
		t.Fatalf("Weights: %v", err)
	}
	if w.Liquidity != 0.4 || w.FutureRisk != 0.3 {
		t.Fatalf("Weights = %+v", w)
	}
}

func TestLoadFrom_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[daemon]\ninterval = \"soon\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom accepted interval \"soon\"")
	}
}

func TestScoringWeights(t *testing.T) {
	w, err := ScoringConfig{}.Weights()
	if err != nil || w != health.DefaultWeights {
		t.Fatalf("zero scoring = %+v, %v; want defaults", w, err)
	}

	_, err = ScoringConfig{Liquidity: 0.5, SavingsRate: 0.5, Trend: 0.5}.Weights()
	var ve *health.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("unbalanced weights error = %v, want ValidationError", err)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.General.Household = "smith"
	cfg.Daemon.Interval = Duration{30 * time.Second}

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("mode = %o, want 600", perm)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.General.Household != "smith" || got.Daemon.Interval.Duration != 30*time.Second {
		t.Fatalf("round trip = %+v", got)
	}
}

func TestSecretsPreferEnv(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Daemon.JWTSecret = "from-file"
	cfg.Notify.Password = "file-pass"

	if got := GetJWTSecret(cfg); got != "from-file" {
		t.Fatalf("GetJWTSecret = %q, want from-file", got)
	}
	t.Setenv("CASHPULSE_JWT_SECRET", "from-env")
	t.Setenv("CASHPULSE_SMTP_PASSWORD", "env-pass")
	if got := GetJWTSecret(cfg); got != "from-env" {
		t.Fatalf("GetJWTSecret = %q, want from-env", got)
	}
	if got := GetSMTPPassword(cfg); got != "env-pass" {
		t.Fatalf("GetSMTPPassword = %q, want env-pass", got)
	}
}

func TestResolveDataDir(t *testing.T) {
	t.Setenv("CASHPULSE_DATA", "/env/data")
	cfg := DefaultConfig()

	if got := ResolveDataDir("", cfg); got != "/env/data" {
		t.Fatalf("default = %q, want /env/data", got)
	}
	cfg.General.DataDir = "/cfg/data"
	if got := ResolveDataDir("", cfg); got != "/cfg/data" {
		t.Fatalf("from config = %q, want /cfg/data", got)
	}
	if got := ResolveDataDir("/flag", cfg); got != "/flag" {
		t.Fatalf("from flag = %q, want /flag", got)
	}
	home, _ := os.UserHomeDir()
	if got := ResolveDataDir("~/fin", cfg); got != filepath.Join(home, "fin") {
		t.Fatalf("tilde = %q", got)
	}
}
