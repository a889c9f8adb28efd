// Package log constructs the process-wide structured logger.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the log output encoding.
type Format string

// Format values.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// New creates a slog.Logger writing to stdout with the given level and format.
func New(level string, format Format) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a slog.Logger writing to w. Tests use this to capture
// output.
func NewWithWriter(w io.Writer, level string, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
