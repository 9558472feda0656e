// Package config loads and saves cashpulse settings from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/cashpulse/internal/health"
)

// Config holds all cashpulse configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Scoring    ScoringConfig    `toml:"scoring"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Notify     NotifyConfig     `toml:"notify"`
	TUI        TUIConfig        `toml:"tui"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir        string `toml:"data_dir,omitempty"`
	LookbackMonths int    `toml:"lookback_months"`
	Currency       string `toml:"currency"`
	Household      string `toml:"household,omitempty"`
}

// ScoringConfig overrides the factor weights. All four must be set
// together and sum to 1; leaving them all at zero keeps the defaults.
type ScoringConfig struct {
	Liquidity   float64 `toml:"liquidity"`
	SavingsRate float64 `toml:"savings_rate"`
	Trend       float64 `toml:"trend"`
	FutureRisk  float64 `toml:"future_risk"`
}

// DaemonConfig holds background service settings.
type DaemonConfig struct {
	Addr         string   `toml:"addr"`
	Interval     Duration `toml:"interval"`
	EventsBuffer int      `toml:"events_buffer"`
	JWTSecret    string   `toml:"jwt_secret,omitempty"`
}

// NotifyConfig holds SMTP settings for critical alert emails.
type NotifyConfig struct {
	Enabled  bool     `toml:"enabled"`
	SMTPHost string   `toml:"smtp_host,omitempty"`
	SMTPPort int      `toml:"smtp_port,omitempty"`
	Username string   `toml:"username,omitempty"`
	Password string   `toml:"password,omitempty"`
	From     string   `toml:"from,omitempty"`
	To       []string `toml:"to,omitempty"`
}

// TUIConfig holds dashboard refresh settings.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// Duration is a time.Duration written as a string like "15m" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			LookbackMonths: health.DefaultLookbackMonths,
			Currency:       "$",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			Interval:     Duration{15 * time.Minute},
			EventsBuffer: 200,
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
		},
		TUI: TUIConfig{
			RefreshIntervalSec: 60,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// Weights converts the scoring section into engine weights. An unset
// section yields the defaults.
func (s ScoringConfig) Weights() (health.Weights, error) {
	w := health.Weights{
		Liquidity:   s.Liquidity,
		SavingsRate: s.SavingsRate,
		Trend:       s.Trend,
		FutureRisk:  s.FutureRisk,
	}
	if w.IsZero() {
		return health.DefaultWeights, nil
	}
	if err := w.Validate(); err != nil {
		return health.Weights{}, fmt.Errorf("scoring weights: %w", err)
	}
	return w, nil
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cashpulse")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cashpulse")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path, returning defaults if it doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.General.LookbackMonths < 1 {
		cfg.General.LookbackMonths = health.DefaultLookbackMonths
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path, creating its directory.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// GetJWTSecret returns the daemon signing secret from env var or config, in that order.
func GetJWTSecret(cfg Config) string {
	if s := os.Getenv("CASHPULSE_JWT_SECRET"); s != "" {
		return s
	}
	return cfg.Daemon.JWTSecret
}

// GetSMTPPassword returns the SMTP password from env var or config, in that order.
func GetSMTPPassword(cfg Config) string {
	if p := os.Getenv("CASHPULSE_SMTP_PASSWORD"); p != "" {
		return p
	}
	return cfg.Notify.Password
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
