// Package logging provides the structured logger used across the simulator.
// Two backends are available: log/slog (default) and zap.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
)

// Field is a structured logging attribute.
type Field struct {
	Key   string
	Value any
}

// Convenience helpers for common field types.
func String(key, value string) Field    { return Field{Key: key, Value: value} }
func Int(key string, value int) Field   { return Field{Key: key, Value: value} }
func Float(key string, v float64) Field { return Field{Key: key, Value: v} }
func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field   { return Field{Key: key, Value: value} }
func Err(err error) Field               { return Field{Key: "error", Value: errString(err)} }

// Logger is the structured logging interface threaded through the pipeline.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Config controls logger construction.
type Config struct {
	Level     string    // debug, info, warn, error
	Format    string    // json or text
	Backend   string    // slog or zap
	AddSource bool      // include source locations
	Output    io.Writer // defaults to os.Stderr
}

// New constructs a Logger for cfg. Unknown backends fall back to slog.
func New(cfg Config) Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	switch strings.ToLower(cfg.Backend) {
	case "zap":
		return newZap(cfg)
	default:
		return newSlog(cfg)
	}
}

// NewFromEnv constructs a logger from ASTRO_LOG_LEVEL, ASTRO_LOG_FORMAT and
// ASTRO_LOG_BACKEND, defaulting to slog text output at info level.
func NewFromEnv() Logger {
	return New(ConfigFromEnv())
}

// ConfigFromEnv reads the logger configuration from the environment.
func ConfigFromEnv() Config {
	return Config{
		Level:   os.Getenv("ASTRO_LOG_LEVEL"),
		Format:  os.Getenv("ASTRO_LOG_FORMAT"),
		Backend: os.Getenv("ASTRO_LOG_BACKEND"),
	}
}

// Noop returns a logger that drops all logs.
func Noop() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) With(...Field) Logger                    { return noopLogger{} }
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
