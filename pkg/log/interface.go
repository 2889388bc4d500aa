// Package log provides the structured logging interface used across musicmap.
//
// The interface is slog-compatible in shape (Debug/Info/Warn/Error with
// key-value fields) and is backed by zerolog. Pipeline stages obtain a named
// logger once and attach the standard attribute keys from attributes.go:
//
//	logger := log.GetLoggerWithName("dataset").With(log.RunIDKey, id)
//	logger.Info("Table loaded",
//	    log.OperationKey, log.OperationLoad,
//	    log.SamplesKey, 953,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
type Logger interface {
	// Debug logs a debug-level message with optional key-value fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional key-value fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional key-value fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error it is
	// attached as the error of the record together with its stack trace.
	//
	//   logger.Error("Write failed", err, log.OperationKey, log.OperationWrite)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
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
