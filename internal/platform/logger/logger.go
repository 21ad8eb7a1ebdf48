package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns the process logger. The level comes from LOG_LEVEL; the format
// is JSON because log aggregation downstream expects it.
func New() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
