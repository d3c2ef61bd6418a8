// Package logging builds the process-wide structured logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"event-marketplace/internal/config"
)

// New builds a slog.Logger from configuration. Production defaults to JSON
// output; everything else defaults to text.
func New(cfg *config.Config) *slog.Logger {
	return NewWithWriter(os.Stderr, cfg.Log.Level, format(cfg))
}

// NewWithWriter builds a logger that writes to w.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func format(cfg *config.Config) string {
	if cfg.Log.Format != "" {
		return cfg.Log.Format
	}
	if cfg.IsProduction() {
		return "json"
	}
	return "text"
}
