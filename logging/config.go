package logging

import (
	"slices"
	"time"
)

const (
	SinkConsole = "console"
	SinkJSON    = "json"
	SinkMemory  = "memory"
)

type Config struct {
	EnabledSinks    []string
	BufferSize      int
	MinimumSeverity Severity
	// SinkSeverity replaces MinimumSeverity for the named sinks, so a JSON
	// file can keep debug events the console does not show.
	SinkSeverity map[string]Severity
	// Categories restricts routing to events in these categories. Empty
	// routes everything.
	Categories       []string
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	Memory           MemoryConfig
	DropWarnInterval time.Duration
}

type JSONConfig struct {
	FilePath      string
	FlushInterval time.Duration
}

type ConsoleConfig struct {
	Prefix       string
	Microseconds bool
}

// MemoryConfig bounds the in-process event buffer served for inspection.
type MemoryConfig struct {
	Capacity int
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{SinkConsole},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
		Memory: MemoryConfig{Capacity: 256},
	}
}

func (c Config) HasSink(name string) bool {
	return slices.Contains(c.EnabledSinks, name)
}

// Threshold is the lowest severity delivered to the named sink.
func (c Config) Threshold(name string) Severity {
	if s, ok := c.SinkSeverity[name]; ok {
		return s
	}
	return c.MinimumSeverity
}
