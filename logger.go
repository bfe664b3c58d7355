package sqlqueue

import (
	"context"
	"log/slog"
)

// Logger is the structured logging surface used by stores and the Poller.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)
	// Info logs an informational message.
	Info(msg string, args ...any)
	// Warn logs a warning message.
	Warn(msg string, args ...any)
	// Error logs an error message.
	Error(msg string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Warn implements Logger.
func (NopLogger) Warn(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, ...any) {}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	Logger *slog.Logger
}

// NewSlogLogger wraps logger, falling back to slog.Default when nil.
func NewSlogLogger(logger *slog.Logger) SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}

	return SlogLogger{Logger: logger}
}

// Debug implements Logger.
func (l SlogLogger) Debug(msg string, args ...any) {
	l.Logger.Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Info implements Logger.
func (l SlogLogger) Info(msg string, args ...any) {
	l.Logger.Log(context.Background(), slog.LevelInfo, msg, args...)
}

// Warn implements Logger.
func (l SlogLogger) Warn(msg string, args ...any) {
	l.Logger.Log(context.Background(), slog.LevelWarn, msg, args...)
}

// Error implements Logger.
func (l SlogLogger) Error(msg string, args ...any) {
	l.Logger.Log(context.Background(), slog.LevelError, msg, args...)
}
