package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir returns where snapshots live when nothing else says so:
// $CASHPULSE_DATA, then $XDG_DATA_HOME/cashpulse, then ~/.local/share/cashpulse.
func DefaultDataDir() string {
	if d := os.Getenv("CASHPULSE_DATA"); d != "" {
		return d
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "cashpulse")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "cashpulse")
}

// ResolveDataDir picks the data directory: an explicit flag wins, then the
// config file, then DefaultDataDir. A leading ~ is expanded.
func ResolveDataDir(flag string, cfg Config) string {
	dir := flag
	if dir == "" {
		dir = cfg.General.DataDir
	}
	if dir == "" {
		return DefaultDataDir()
	}
	return expandHome(dir)
}

func expandHome(p string) string {
	if p == "~" || len(p) > 1 && p[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[1:])
	}
	return p
}
