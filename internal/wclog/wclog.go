// Package wclog is the diagnostic logger every long-running wcupdate
// command writes to: a rotating file the CLI never expects a human to
// watch live, as distinct from the notification sink's update-by-update
// console output (internal/notify).
package wclog

import (
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how much diagnostic log history is kept.
type Options struct {
	// Path is the log file. Empty disables file logging entirely (the
	// logger writes to stderr instead).
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultOptions rotates at 10MB, keeps 5 backups for 28 days, under the
// given working copy's admin area.
func DefaultOptions(wcRoot string) Options {
	return Options{
		Path:       filepath.Join(wcRoot, ".wcadm", "wcupdate.log"),
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 28,
	}
}

// New builds a structured logger. Cleanup-path errors the editor discards
// (spec.md §7: "logged at warn... never returned over a first real error")
// are meant to be written through the logger this returns.
func New(opts Options) *slog.Logger {
	if opts.Path == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	w := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(w, nil))
}
