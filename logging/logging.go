package logging

import (
	"log/slog"
	"os"
)

// New returns the application logger. When the daily file handler cannot be
// created (read-only filesystem, tests) it falls back to plain stdout.
func New(logDir string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	handler, err := NewDailyFileHandler(logDir, opts)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(handler)
}
