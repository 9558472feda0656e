package daemon

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a JSON logrus logger writing to stderr. An empty or
// unknown level falls back to CASHPULSE_LOG_LEVEL, then info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.JSONFormatter{})

	if level == "" {
		level = os.Getenv("CASHPULSE_LOG_LEVEL")
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
