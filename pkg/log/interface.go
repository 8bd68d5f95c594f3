// Package log provides the structured logging interface used across lapcast.
//
// The interface mirrors log/slog's key/value calling convention so call sites
// stay backend agnostic. The default backend is zerolog (see zerolog.go); the
// TestLogger in testing.go captures records in memory for assertions.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("pipeline").With(
//	    log.SeasonKey, 2024,
//	    log.RoundKey, 3,
//	)
//	logger.Info("Training set assembled",
//	    log.SamplesKey, 19,
//	    log.FeaturesKey, 1,
//	)
package log

import (
	"context"
)

// Logger is a leveled, structured logger.
//
// Fields are passed as alternating key/value pairs. An error value passed
// under ErrAttrKey is rendered with its stack trace when the backend
// supports it.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs a condition that does not stop the run but deserves
	// attention, such as drivers dropped from a join.
	Warn(msg string, fields ...any)

	// Error logs an error condition.
	//
	// Example:
	//   logger.Error("Pipeline failed", log.ErrAttrKey, err)
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with slog-compatible values.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. The package keeps one global provider,
// replaceable with SetProvider for tests.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for loggers created by this provider.
	SetLevel(level Level)
}
