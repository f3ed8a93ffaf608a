package telemetry

import (
	"log"

	"easy-ai/server/logging"
)

// Logger receives free-text operational messages.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts a function to Logger. A nil LoggerFunc discards.
type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f != nil {
		f(format, args...)
	}
}

// Discard drops every message.
var Discard Logger = LoggerFunc(nil)

// WrapLogger adapts a standard library logger. A nil logger discards.
func WrapLogger(logger *log.Logger) Logger {
	if logger == nil {
		return Discard
	}
	return logger
}

// Prefixed tags every message from a subsystem.
func Prefixed(logger Logger, prefix string) Logger {
	if logger == nil {
		return Discard
	}
	return LoggerFunc(func(format string, args ...any) {
		logger.Printf(prefix+format, args...)
	})
}

// Metrics receives named counters and gauges.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

// WrapMetrics exposes the shared metric registry. A nil registry discards.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	if metrics == nil {
		return nopMetrics{}
	}
	return metrics
}
