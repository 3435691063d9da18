// Package logger builds the structured *zap.SugaredLogger every other
// package in this module logs through. It exists so that callers never
// construct a zap.Config by hand — instead they get a logger preconfigured
// for the engine's needs (ISO8601 timestamps, a "service" field identifying
// the component) and, once pkg/logpipe is wired in, a core that tees into
// the embedder's log pipe.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger for the named service. Every log line
// carries a "service" field so that output from Env, the catalog, and
// segment machinery can be told apart in a shared log stream.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.TimeKey = "ts"

	log, err := cfg.Build()
	if err != nil {
		// zap.NewProductionConfig().Build() only fails on a bad sink/encoder
		// registration, which can't happen with the stock config above.
		log = zap.NewNop()
	}

	return log.Sugar().Named(service)
}

// NewDevelopment builds a human-readable, colorized logger for local
// development and test setup, in place of New's JSON production encoder.
func NewDevelopment(service string) *zap.SugaredLogger {
	log, err := zap.NewDevelopment()
	if err != nil {
		log = zap.NewNop()
	}
	return log.Sugar().Named(service)
}

// NewWithCore builds a logger backed by the given zapcore.Core instead of
// the stock production JSON encoder/sink, e.g. a core from pkg/logpipe's
// Core to send log lines into the process-wide log pipe. Nothing in this
// module calls it; the module's own loggers come from New/NewDevelopment.
func NewWithCore(service string, core zapcore.Core) *zap.SugaredLogger {
	return zap.New(core).Sugar().Named(service)
}
