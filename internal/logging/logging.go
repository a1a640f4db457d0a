// Package logging provides structured logging for the seisfetch application.
//
// This package wraps the standard library's log/slog package to provide
// consistent logging across all components. It supports both text and JSON
// output formats, configurable log levels, and component-based loggers.
//
// Usage:
//
//	// Initialize at startup
//	logging.Init(slog.LevelInfo, false) // Text format
//	logging.Init(slog.LevelDebug, true) // JSON format
//
//	// Get a component logger
//	log := logging.Component("download")
//	log.Info("dispatch started", "jobs", 10)
//
//	// Log with run context
//	logging.WithContext(ctx).Error("fetch failed", "error", err, "key", key)
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance.
var Logger *slog.Logger

// Init initializes the global logger with the specified level and format.
// If jsonFormat is true, logs are output as JSON; otherwise, human-readable text.
// Logs go to stderr so stdout stays free for key listings.
func Init(level slog.Level, jsonFormat bool) {
	InitWriter(os.Stderr, level, jsonFormat)
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level slog.Level, jsonFormat bool) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// InitWithHandler initializes the global logger with a custom handler.
// This is useful for testing or custom output destinations.
func InitWithHandler(handler slog.Handler) {
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// ParseLevel converts a config level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// With returns a new logger with additional attributes.
// These attributes are included in every log entry from the returned logger.
func With(args ...any) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger.With(args...)
}

// Component returns a logger for a specific component.
// The component name is added as an attribute to all log entries.
//
// Example:
//
//	log := logging.Component("locate")
//	log.Info("started") // Output: time=... level=INFO component=locate msg=started
func Component(name string) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger.With("component", name)
}

// WithContext returns a logger that includes context values.
func WithContext(ctx context.Context) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}

	logger := Logger

	if runID, ok := ctx.Value(contextKeyRunID).(string); ok {
		logger = logger.With("run_id", runID)
	}
	if station, ok := ctx.Value(contextKeyStation).(string); ok {
		logger = logger.With("station_id", station)
	}

	return logger
}

// ComponentContext combines Component and WithContext.
func ComponentContext(ctx context.Context, name string) *slog.Logger {
	return WithContext(ctx).With("component", name)
}

// Context key types for type-safe context value extraction.
type contextKey int

const (
	contextKeyRunID contextKey = iota
	contextKeyStation
)

// ContextWithRunID adds a run ID to the context for logging.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, contextKeyRunID, runID)
}

// RunIDFromContext returns the run ID stored by ContextWithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKeyRunID).(string)
	return id, ok
}

// ContextWithStation adds a station identifier to the context for logging.
func ContextWithStation(ctx context.Context, stationID string) context.Context {
	return context.WithValue(ctx, contextKeyStation, stationID)
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Info(msg, args...)
}

// Warn logs at warning level.
func Warn(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	Logger.Error(msg, args...)
}
