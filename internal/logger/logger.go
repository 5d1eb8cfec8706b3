// Package logger builds the process-wide slog.Logger: text records to
// stdout and, when a file is configured, to a size-rotated log file.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel converts a level string to slog.Level. Supports debug,
// info, warn, error (case-insensitive); anything else means info.
func ParseLevel(s string) slog.Level {
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

// New creates a logger writing to stdout and, when path is non-empty,
// to a rotating file as well. Rotation keeps about a month of history.
func New(path string, level slog.Level) *slog.Logger {
	var w io.Writer = os.Stdout
	if path != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    20,
			MaxBackups: 3,
			MaxAge:     28,
		})
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
