// Package logger configures the log/slog logger shared by the CLI and the
// allocator engine.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It's initialized to discard all output by default.
// Call Init() to enable logging.
var L = Discard()

const (
	logPrefix     = "segalloc-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Path    string     // Log file, or a directory for dated files. Empty: stderr
	Level   slog.Level // Minimum log level
	JSON    bool       // JSON records instead of text (always JSON for files)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New builds a logger from opts. The returned close function releases the
// log file, if one was opened.
func New(opts Options) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }
	if !opts.Enabled {
		return Discard(), noop, nil
	}
	hopts := &slog.HandlerOptions{Level: opts.Level}

	if opts.Path == "" {
		if opts.JSON {
			return slog.New(slog.NewJSONHandler(os.Stderr, hopts)), noop, nil
		}
		return slog.New(slog.NewTextHandler(os.Stderr, hopts)), noop, nil
	}

	filename := opts.Path
	if info, err := os.Stat(filename); err == nil && info.IsDir() {
		// Clean up old logs (best-effort, ignore errors)
		cleanOldLogs(filename)
		filename = filepath.Join(filename, logPrefix+time.Now().Format("2006-01-02")+logSuffix)
	} else if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, nil, err
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewJSONHandler(f, hopts)), f.Close, nil
}

// Init configures the global logger L. Call from main() before any log calls.
func Init(opts Options) (func() error, error) {
	l, closeFn, err := New(opts)
	if err != nil {
		return nil, err
	}
	L = l
	return closeFn, nil
}

// cleanOldLogs removes dated log files older than retentionDays.
func cleanOldLogs(logDir string) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// Parse date from filename: segalloc-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
