package config

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger writes JSON at Info in production and text at Debug elsewhere
func NewLogger(env string) *slog.Logger {
	level := slog.LevelDebug
	if env == "production" {
		level = slog.LevelInfo
	}
	return NewLoggerTo(os.Stdout, env, level)
}

// NewLoggerTo builds the service logger on w. Source locations are added in development only.
func NewLoggerTo(w io.Writer, env string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: env == "development",
	}

	if env == "production" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
