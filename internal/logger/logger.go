package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type contextKey string

const loggerKey contextKey = "logger"

// New creates the process-wide structured logger. The level is taken from
// LOG_LEVEL (debug, info, warn, error); anything unrecognized means info.
func New() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(levelFromEnv()).With().Timestamp().Logger()
}

// NewWithWriter creates a logger writing to w. Used by tests to capture output.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// Component returns a child logger tagged with a component name, so log lines
// can be traced back to the package that emitted them.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// WithContext stores the logger in the context.
func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext retrieves the logger from the context, falling back to a fresh
// default logger when none was stored.
func FromContext(ctx context.Context) zerolog.Logger {
	if log, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return log
	}
	return New()
}

func levelFromEnv() zerolog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
