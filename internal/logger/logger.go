// Package logger holds the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	globalLogger *slog.Logger
	debugEnabled bool
	mu           sync.RWMutex
)

// Setup installs a text logger writing to w at info level, or debug level when debug is set
func Setup(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	SetGlobal(l, debug)
	return l
}

// SetGlobal sets the global logger and debug state
func SetGlobal(logger *slog.Logger, debug bool) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = logger
	debugEnabled = debug
}

// Get returns the global logger instance
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if globalLogger != nil {
		return globalLogger
	}

	// Fallback logger
	level := slog.LevelInfo
	if debugEnabled {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// IsDebug returns whether debug mode is enabled
func IsDebug() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugEnabled
}
