// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
)

// Setup installs a JSON slog handler at the given level. The writer is
// injected because a Bubble Tea program owns the terminal; logs go to a
// file, not stdout.
func Setup(w io.Writer, level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})

	slog.SetDefault(slog.New(handler))
}
