package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// createCLILogger creates a logger for CLI commands writing to stderr so
// it never mixes with the conversation on stdout.
func createCLILogger(logLevel string) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: parseLogLevel(logLevel),
	}))
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
