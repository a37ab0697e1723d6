// Package logger holds the process-wide slog logger of tlsfctl.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// L is the global logger instance. It discards all output until Init enables it.
var L = discard()

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Path    string     // Log file, appended to. "-" logs to stderr
	Level   slog.Level // Minimum log level. Default: LevelInfo
	Text    bool       // Text handler instead of JSON
}

var closer io.Closer

// Init configures logging. Call before any log calls; calling it again closes the
// previous log file.
func Init(opts Options) error {
	Close()
	if !opts.Enabled {
		L = discard()
		return nil
	}

	var w io.Writer = os.Stderr
	if opts.Path != "" && opts.Path != "-" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		w, closer = f, f
	}

	hopts := &slog.HandlerOptions{Level: opts.Level}
	if opts.Text {
		L = slog.New(slog.NewTextHandler(w, hopts))
	} else {
		L = slog.New(slog.NewJSONHandler(w, hopts))
	}
	return nil
}

// Close closes the log file opened by Init, if any. L discards afterwards.
func Close() {
	if closer != nil {
		_ = closer.Close()
		closer = nil
		L = discard()
	}
}

// ParseLevel maps "debug", "info", "warn" or "error" to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
