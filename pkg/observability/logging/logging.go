// Package logging provides the shared logger for governor components.
//
// The package-level logger defaults to a no-op, so library users pay
// nothing unless they opt in. Applications call Init for a stock
// production logger or SetLogger to install their own zap instance;
// governor components log through the package-level functions.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	gverrors "github.com/dbadmin-ai/governor/pkg/common/errors"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop().Sugar()
)

// Init installs a production JSON logger at the given level. Accepted
// levels are the zap names: debug, info, warn, error, dpanic, panic,
// fatal.
func Init(level string) error {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return gverrors.NewValidationError("logging", "level", level, "unknown log level").
			WithHint("use one of: debug, info, warn, error")
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parsed)

	built, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return gverrors.NewOperationError("logging", "Init", err)
	}

	SetLogger(built)
	return nil
}

// SetLogger installs a custom zap logger. Passing nil restores the no-op
// logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}

	mu.Lock()
	logger = l.Sugar()
	mu.Unlock()
}

// Sync flushes any buffered log entries.
func Sync() error {
	return current().Sync()
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

// Infof logs a formatted message at info level.
func Infof(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
