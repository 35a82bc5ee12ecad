package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger defines the interface for logging in nightowl.
// It provides standard logging levels and a mechanism to add structured context.
type Logger interface {
	// Debug logs a message at the debug level.
	Debug(msg string, args ...any)
	// Info logs a message at the info level.
	Info(msg string, args ...any)
	// Warn logs a message at the warning level.
	Warn(msg string, args ...any)
	// Error logs a message at the error level.
	Error(msg string, args ...any)
	// With returns a new Logger with the given structured context added.
	With(args ...any) Logger
}

// Log is the global logger instance used by the entrypoint and CLI.
// It is initialized with a default JSON handler pointing to stderr, leaving
// stdout to the operator console.
var Log Logger = New(os.Stderr, slog.LevelInfo)

// New returns a Logger writing JSON records at or above level to w.
func New(w io.Writer, level slog.Level) Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		// Add source file info for better debugging
		AddSource: true,
	}
	return &wrapper{l: slog.New(slog.NewJSONHandler(w, opts))}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Unknown values fall back to info.
func ParseLevel(level string) slog.Level {
	switch level {
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

// InitLogger initializes the global Log instance with the specified logging level
// and output writer. A nil writer keeps stderr.
func InitLogger(level string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	Log = New(w, ParseLevel(level))
}

// Discard returns a Logger that drops every record. Useful in tests.
func Discard() Logger {
	return &wrapper{l: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

type wrapper struct {
	l *slog.Logger
}

func (w *wrapper) Debug(msg string, args ...any) { w.l.Debug(msg, args...) }
func (w *wrapper) Info(msg string, args ...any)  { w.l.Info(msg, args...) }
func (w *wrapper) Warn(msg string, args ...any)  { w.l.Warn(msg, args...) }
func (w *wrapper) Error(msg string, args ...any) { w.l.Error(msg, args...) }
func (w *wrapper) With(args ...any) Logger       { return &wrapper{l: w.l.With(args...)} }

// Personal.AI order the ending
