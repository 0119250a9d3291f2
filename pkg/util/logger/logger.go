// Package logger wraps a go-logr.Logger backed by zap, exposing the
// flat key-value call style used throughout this repository:
// logger.Info("message", "key", value, "key2", value2).
package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.RWMutex
	log logr.Logger = newDefault()
)

func newDefault() logr.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zl, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than panic at init time.
		return logr.Discard()
	}
	return zapr.NewLogger(zl)
}

// SetZap replaces the underlying zap logger, e.g. to switch to JSON
// encoding for machine-consumed output or to raise verbosity.
func SetZap(zl *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = zapr.NewLogger(zl)
}

// SetVerbose reconfigures the default logger at debug level.
func SetVerbose(verbose bool) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zl, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: failed to build zap logger: %v\n", err)
		return
	}
	SetZap(zl)
}

// Info logs an informational message with structured key-value pairs.
func Info(msg string, keysAndValues ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info(msg, keysAndValues...)
}

// Error logs an error with structured key-value pairs.
func Error(err error, msg string, keysAndValues ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error(err, msg, keysAndValues...)
}

// V returns a logger at the given verbosity level (0 is Info; higher is
// progressively more verbose, following logr convention).
func V(level int) logr.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.V(level)
}
