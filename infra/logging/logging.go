// Package logging builds the process-wide slog logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/webitel/im-chat-service/config"
)

// levelVar backs hot reload: config.Watch flips it without rebuilding
// handlers.
var levelVar = new(slog.LevelVar)

// New constructs the root logger. Output "console" (or empty) targets stderr;
// anything else is treated as a file path opened in append mode.
func New(cfg config.LogConfig) (*slog.Logger, error) {
	levelVar.Set(ParseLevel(cfg.Level))

	var w io.Writer = os.Stderr
	if cfg.Output != "" && cfg.Output != "console" {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w = f
	}

	opts := &slog.HandlerOptions{Level: levelVar}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, nil
}

// SetLevel applies a new minimum level to every logger built by New.
func SetLevel(level string) {
	levelVar.Set(ParseLevel(level))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
