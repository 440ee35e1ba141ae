// Package logger provides the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the logging level.
type Level = zerolog.Level

// Log levels.
const (
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
	LevelNone  = zerolog.Disabled
)

// Component is the field every logger carries.
const Component = "hvfhir"

var (
	mu            sync.RWMutex
	defaultLogger = New(os.Stderr, LevelInfo)
)

// New creates a JSON logger writing to output.
func New(output io.Writer, level Level) zerolog.Logger {
	return zerolog.New(output).Level(level).With().Timestamp().Str("component", Component).Logger()
}

// NewConsole creates a human-readable logger writing to output.
func NewConsole(output io.Writer, level Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(level).With().Timestamp().Str("component", Component).Logger()
}

// Default returns the default logger.
func Default() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// SetLevel sets the level of the default logger.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = defaultLogger.Level(level)
}

// Disable disables all logging through the default logger.
func Disable() {
	SetLevel(LevelNone)
}

// ParseLevel parses "debug", "info", "warn", "error" or "none".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return LevelNone, nil
	case "warning":
		return LevelWarn, nil
	}
	return zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
}
