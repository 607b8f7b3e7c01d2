// Package logging wraps zerolog with the fields every component of the
// storage engine core attaches to its log lines: component name, and
// where applicable request_id/user_id for tracing a single call through
// path resolution, the tree engine, blob store, and audit queue.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide base logger. Init must be called once at
// startup before any component derives a child logger from it.
var Logger zerolog.Logger

// Level is a logging verbosity level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how Init builds the base logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init configures the global Logger. Call once during startup.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagged with the component that
// emits the log line, e.g. "tree", "blob", "pathresolver". Returned as
// a pointer so call sites can chain straight onto a level method
// (zerolog's Debug/Info/Warn/Error all take a *Logger receiver).
func WithComponent(component string) *zerolog.Logger {
	l := Logger.With().Str("component", component).Logger()
	return &l
}

// WithRequestID returns a child logger carrying the inbound request's
// correlation id.
func WithRequestID(logger *zerolog.Logger, requestID string) *zerolog.Logger {
	if requestID == "" {
		return logger
	}
	l := logger.With().Str("request_id", requestID).Logger()
	return &l
}

// WithUserID returns a child logger carrying the acting user's id.
func WithUserID(logger *zerolog.Logger, userID string) *zerolog.Logger {
	if userID == "" {
		return logger
	}
	l := logger.With().Str("user_id", userID).Logger()
	return &l
}

// ForOperation builds the child logger a component uses for the
// duration of a single operation, attaching component/operation/
// request_id/user_id in one call.
func ForOperation(component, operation, requestID, userID string) *zerolog.Logger {
	l := WithComponent(component).With().Str("operation", operation).Logger()
	result := WithUserID(WithRequestID(&l, requestID), userID)
	return result
}
