// Package logger provides the shared structured JSON logger used by the
// gateway, frontend, and simulator services.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Options configures the logger.
type Options struct {
	// Output is where log records are written (defaults to os.Stdout).
	Output io.Writer
	// Level is the minimum level to emit.
	Level slog.Level
	// Service, when set, is attached to every record as a "service" attr.
	Service string
	// AddSource adds source position to log records.
	AddSource bool
}

// New creates a JSON logger from opts. A nil opts yields an info-level
// logger on stdout.
func New(opts *Options) *slog.Logger {
	if opts == nil {
		opts = &Options{Level: slog.LevelInfo}
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
	})

	l := slog.New(handler)
	if opts.Service != "" {
		l = l.With("service", opts.Service)
	}
	return l
}

// ForService creates a stdout JSON logger tagged with the service name at
// the given textual level.
func ForService(service, level string) *slog.Logger {
	return New(&Options{Service: service, Level: ParseLevel(level)})
}

// ParseLevel converts a string to a slog.Level. Unrecognized values fall
// back to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
