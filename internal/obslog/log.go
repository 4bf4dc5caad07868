// Package obslog configures the process-wide slog handler.
package obslog

import (
	"log/slog"
	"os"
)

// Init installs the default slog handler for the process. Format is "json"
// or "text" (default). Level is parsed via slog.Level.UnmarshalText,
// falling back to Info on an unrecognized value.
func Init(format, level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
