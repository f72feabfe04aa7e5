package config

import (
	"io"
	"log/slog"
	"os"
)

// EnvDebug turns on debug logging when set to 1 or true.
const EnvDebug = "SLACKAGENT_DEBUG"

func CheckDebug() bool {
	debug := os.Getenv(EnvDebug)
	return debug == "true" || debug == "1"
}

// NewLogger returns a text logger on w, at debug level when debug is set.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// InitLogger installs the process logger on stderr and returns it.
func InitLogger() *slog.Logger {
	logger := NewLogger(os.Stderr, CheckDebug())
	slog.SetDefault(logger)
	if CheckDebug() {
		logger.Debug("debug logging enabled", "env", EnvDebug)
	}
	return logger
}
