// Package rlog is the process-wide structured logger. It wraps zap the way
// a sugared global logger is conventionally exposed: level-gated
// package-level functions backed by a single *zap.SugaredLogger.
package rlog

import (
	"go.uber.org/zap"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
	FATAL
)

var (
	logLevel Level
	sugar    *zap.SugaredLogger
)

func init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	sugar = logger.Sugar()
}

// SetLevel changes the minimum level these functions pass on to zap. The
// zap logger applies its own level as well: the default production logger
// drops Debug lines whatever SetLevel says; SetDevelopment's logger keeps
// them.
func SetLevel(level Level) {
	logLevel = level
}

// SetDevelopment swaps the global logger for zap's human-readable
// development config. Intended for use from main() before the first
// adapter starts accepting connections.
func SetDevelopment() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar = logger.Sugar()
}

func Sync() {
	_ = sugar.Sync()
}

func Debug(format string, args ...interface{}) {
	if logLevel <= DEBUG {
		sugar.Debugf(format, args...)
	}
}

func Info(format string, args ...interface{}) {
	if logLevel <= INFO {
		sugar.Infof(format, args...)
	}
}

func Warn(format string, args ...interface{}) {
	if logLevel <= WARNING {
		sugar.Warnf(format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if logLevel <= ERROR {
		sugar.Errorf(format, args...)
	}
}

func Fatal(format string, args ...interface{}) {
	sugar.Fatalf(format, args...)
}

// With returns a child logger carrying the given key/value fields, useful
// for adapters that want to tag every line with a connection or session id.
func With(args ...interface{}) *zap.SugaredLogger {
	return sugar.With(args...)
}
