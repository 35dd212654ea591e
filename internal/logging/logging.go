// Package logging provides categorized structured logging for codesmith.
// Every subsystem logs through a named zap logger so that output can be
// filtered per category. Call Initialize once at startup; Get returns a
// no-op logger before that, so packages never need nil checks.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryEngine Category = "engine" // task loop, retry, continuation
	CategoryTools  Category = "tools"  // capability dispatch
	CategoryFS     Category = "fsops"  // filesystem operations, undo
	CategoryBroker Category = "broker" // pending interactions
	CategoryState  Category = "state"  // task state store
	CategoryModel  Category = "model"  // model client adapter
	CategoryIndex  Category = "index"  // context index
	CategoryCLI    Category = "cli"    // command surface
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	loggers = make(map[Category]*zap.Logger)
)

// Initialize installs the process-wide root logger. Subsequent Get calls
// derive category loggers from it. Safe to call more than once; the last
// call wins and clears cached category loggers.
func Initialize(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	root = logger
	loggers = make(map[Category]*zap.Logger)
}

// NewLogger builds a console logger at the given level, in the shape the
// CLI installs at startup.
func NewLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}

// Get returns (or creates) the logger for a category.
func Get(category Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := root.Named(string(category))
	loggers[category] = l
	return l
}

// Sync flushes buffered log entries. Call at shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
