package logging

import (
	"log/slog"
	"os"
	"strings"
)

func New(logLevel string, json bool) *slog.Logger {
	level := parseLevel(logLevel)
	opts := &slog.HandlerOptions{Level: level, AddSource: true}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
