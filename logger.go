package injector

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger defines the interface for runtime logging.
// The injector uses structured logging with key-value pairs, so
// *slog.Logger satisfies it directly:
//
//	c := injector.NewContainer("app", injector.WithLogger(slog.Default()))
//
// Containers log resource initialization and shutdown, overrides and
// dependency checks through this interface.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	// Used for unusual but valid usage, such as overriding with a bare value.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, args ...any)
}

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(loggerHolder{slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))})
}

// loggerHolder keeps the stored dynamic type constant for atomic.Value.
type loggerHolder struct{ Logger }

// SetDefaultLogger replaces the logger used by providers that are not
// attached to a container with its own logger.
func SetDefaultLogger(l Logger) {
	if l == nil {
		return
	}
	defaultLogger.Store(loggerHolder{l})
}

// DefaultLogger returns the package-level fallback logger.
func DefaultLogger() Logger {
	return defaultLogger.Load().(loggerHolder).Logger
}
