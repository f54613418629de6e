// Package logger builds the zap logger shared by the CLI and the backtest
// packages. Call sites depend on the local Logger type, not on zap's
// construction API.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a named zap logger.
type Logger struct {
	*zap.Logger
}

// Option adjusts the logger configuration before it is built.
type Option func(*zap.Config)

// WithLevel overrides the default info level. The CLI maps --verbose to
// debug through this.
func WithLevel(level zapcore.Level) Option {
	return func(cfg *zap.Config) {
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
}

// WithConsoleOutput switches from JSON lines to human-readable console
// encoding for interactive runs.
func WithConsoleOutput() Option {
	return func(cfg *zap.Config) {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
}

// NewLogger builds the default logger: JSON lines on stdout, errors on
// stderr, info level, ISO 8601 timestamps, named "backtester".
func NewLogger(opts ...Option) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	for _, opt := range opts {
		opt(&cfg)
	}

	built, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: built.Named("backtester")}, nil
}

// NewTestLogger returns a logger that discards all output.
func NewTestLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Sync flushes buffered entries. Safe on a logger without a zap core.
func (l *Logger) Sync() error {
	if l.Logger == nil {
		return nil
	}

	return l.Logger.Sync()
}
