// Package logger defines the logging interface used across go-tropic01,
// so applications can plug in their preferred logging framework.
//
// The Logger interface covers leveled logging (Debug, Info, Warn, Error,
// Fatal) with structured key-value pairs. The default implementation is
// backed by log/slog: a human-readable console handler when the ENV
// environment variable is "development", a JSON handler otherwise.
package logger

// Level indicates the logging severity level.
type Level = int8

const (
	// DebugLevel is chatty; the link driver logs every exchange at this level.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel marks conditions the module recovered from on its own.
	WarnLevel
	// ErrorLevel marks failures that are also surfaced to the caller.
	ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel
)

// Logger is the leveled, structured logging interface the module logs
// through. Key-value pairs alternate key (string) and value, slog style.
type Logger interface {
	// Debug logs a message at DebugLevel.
	Debug(msg string, keysAndValues ...any)
	// Info logs a message at InfoLevel.
	Info(msg string, keysAndValues ...any)
	// Warn logs a message at WarnLevel.
	Warn(msg string, keysAndValues ...any)
	// Error logs a message at ErrorLevel.
	Error(msg string, keysAndValues ...any)
	// Fatal logs a message at FatalLevel, then exits the process even
	// when FatalLevel is disabled.
	Fatal(msg string, keysAndValues ...any)
	// With returns a child logger with the given key-value context
	// attached. The parent is not affected.
	With(keyValues ...any) Logger
	// Level returns the minimum enabled level.
	Level() Level
	// SetLevel sets the minimum enabled level.
	SetLevel(level Level)
}
