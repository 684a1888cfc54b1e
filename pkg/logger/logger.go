// Package logger holds the process-wide zap logger shared by the CLI and
// the profile service.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	global *zap.Logger
	mu     sync.RWMutex
)

func init() { // usable before Init, e.g. in tests
	global = zap.NewNop()
}

// Init configures the global logger. Level is a zap level name ("debug",
// "info", ...); unknown values fall back to info. Console mode switches to
// the human-readable development encoder, which the CLI uses.
func Init(level string, console bool) error {
	cfg := zap.NewProductionConfig()
	if console {
		cfg = zap.NewDevelopmentConfig()
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	global = l
	return nil
}

// L returns the configured global logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Named returns a child logger annotated with a subsystem name.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushes buffered log entries.
func Sync() error {
	return L().Sync()
}
