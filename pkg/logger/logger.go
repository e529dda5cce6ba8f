// Package logger constructs the structured logger every ignitedb component
// takes through its Config struct. It is a thin wrapper around zap, the
// logging library the whole module standardizes on.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap configuration tagged with the given service
// name and returns it as a SugaredLogger, the form every internal package
// expects in its Config struct.
//
// Service identifies the process using the logger ("ignite-server",
// "ignite-client", or a test name); it is attached to every log line so
// multiple components' output can be told apart when aggregated.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	log, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Falling back to a no-op logger keeps callers from having to handle
		// a construction error for what is, in practice, an infallible
		// operation on any platform zap supports.
		log = zap.NewNop()
	}

	return log.Sugar().With("service", service)
}

// NewDevelopment builds a human-readable, colorized logger suitable for
// local development and tests.
func NewDevelopment(service string) *zap.SugaredLogger {
	log, err := zap.NewDevelopment()
	if err != nil {
		log = zap.NewNop()
	}
	return log.Sugar().With("service", service)
}

// Nop returns a logger that discards everything, for tests that don't care
// about log output.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
