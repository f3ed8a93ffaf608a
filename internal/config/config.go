// Package config loads server configuration from defaults, an optional
// YAML or HJSON file and EASYAI_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hjson/hjson-go/v4"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"easy-ai/server/internal/agent"
	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/navgraph"
	"easy-ai/server/internal/scheduler"
	"easy-ai/server/internal/spatial"
	"easy-ai/server/internal/steering"
	"easy-ai/server/logging"
)

// ErrInvalid marks configuration values that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

const (
	ScenarioWestWorld = "westworld"
	ScenarioEnergy    = "energy"
	ScenarioWander    = "wander"

	GeneratorCorner = "corner"
	GeneratorGrid   = "grid"
)

type Config struct {
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`
	Navigation NavigationConfig `json:"navigation" yaml:"navigation"`
	Level      LevelConfig      `json:"level" yaml:"level"`
	Scenario   ScenarioConfig   `json:"scenario" yaml:"scenario"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	HTTP       HTTPConfig       `json:"http" yaml:"http"`
	Messages   MessagesConfig   `json:"messages" yaml:"messages"`
}

type SimulationConfig struct {
	TickRate         int     `json:"tickRate" yaml:"tickRate" jsonschema:"minimum=1"`
	PhysicsRate      int     `json:"physicsRate" yaml:"physicsRate" jsonschema:"minimum=1"`
	MaxAgentsPerTick int     `json:"maxAgentsPerTick" yaml:"maxAgentsPerTick" jsonschema:"description=0 performs every agent each tick"`
	CatchupMaxTicks  int     `json:"catchupMaxTicks" yaml:"catchupMaxTicks"`
	Gravity          float64 `json:"gravity" yaml:"gravity"`
}

type NavigationConfig struct {
	Radius         float64 `json:"radius" yaml:"radius" jsonschema:"description=agent radius; 0 uses line of sight"`
	PullMaxHeight  float64 `json:"pullMaxHeight" yaml:"pullMaxHeight" jsonschema:"description=max height change a shortcut may span; 0 is unlimited"`
	SeekAcceptable float64 `json:"seekAcceptable" yaml:"seekAcceptable"`
	FleeAcceptable float64 `json:"fleeAcceptable" yaml:"fleeAcceptable"`
	RestVelocity   float64 `json:"restVelocity" yaml:"restVelocity"`
	TablePath      string  `json:"tablePath,omitempty" yaml:"tablePath,omitempty"`
	LoadTable      bool    `json:"loadTable,omitempty" yaml:"loadTable,omitempty"`
	Workers        int     `json:"workers,omitempty" yaml:"workers,omitempty"`
	StrictNearest  bool    `json:"strictNearest,omitempty" yaml:"strictNearest,omitempty"`
}

type LevelConfig struct {
	Terrain     spatial.TerrainConfig `json:"terrain" yaml:"terrain"`
	Areas       []navgraph.AreaConfig `json:"areas,omitempty" yaml:"areas,omitempty"`
	Nodes       []geom.Vec3           `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Obstacles   []spatial.Box         `json:"obstacles,omitempty" yaml:"obstacles,omitempty"`
	Generator   string                `json:"generator" yaml:"generator" jsonschema:"enum=corner,enum=grid"`
	GridSpacing int                   `json:"gridSpacing,omitempty" yaml:"gridSpacing,omitempty"`
	CornerSteps int                   `json:"cornerSteps,omitempty" yaml:"cornerSteps,omitempty"`
	Physics     bool                  `json:"physics,omitempty" yaml:"physics,omitempty" jsonschema:"description=answer line of sight with box2d raycasts"`
	DumpDir     string                `json:"dumpDir,omitempty" yaml:"dumpDir,omitempty"`
}

type ScenarioConfig struct {
	Kind        string `json:"kind" yaml:"kind" jsonschema:"enum=westworld,enum=energy,enum=wander"`
	Agents      int    `json:"agents" yaml:"agents"`
	Seed        int64  `json:"seed" yaml:"seed"`
	Integration string `json:"integration,omitempty" yaml:"integration,omitempty" jsonschema:"enum=transform,enum=physics,enum=character"`
}

type LoggingConfig struct {
	Sinks           []string `json:"sinks" yaml:"sinks"`
	BufferSize      int      `json:"bufferSize" yaml:"bufferSize"`
	MinimumSeverity string   `json:"minimumSeverity" yaml:"minimumSeverity" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	// SinkSeverity overrides minimumSeverity per sink name.
	SinkSeverity map[string]string `json:"sinkSeverity,omitempty" yaml:"sinkSeverity,omitempty"`
	Categories   []string          `json:"categories,omitempty" yaml:"categories,omitempty"`
	JSONFile     string            `json:"jsonFile,omitempty" yaml:"jsonFile,omitempty"`
	Prefix       string            `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// MemoryEvents is how many recent events the memory sink keeps for /events.
	MemoryEvents int `json:"memoryEvents,omitempty" yaml:"memoryEvents,omitempty"`
}

type HTTPConfig struct {
	Address     string `json:"address" yaml:"address"`
	EnablePprof bool   `json:"enablePprof,omitempty" yaml:"enablePprof,omitempty"`
	// StreamInterval is the websocket snapshot period in milliseconds.
	StreamInterval int `json:"streamIntervalMillis" yaml:"streamIntervalMillis"`
}

type MessagesConfig struct {
	Mode string `json:"mode" yaml:"mode" jsonschema:"enum=all,enum=compact,enum=unique"`
	Max  int    `json:"max" yaml:"max"`
}

// DefaultConfig runs the West World demo on a small open level.
func DefaultConfig() Config {
	return Config{
		Simulation: SimulationConfig{
			TickRate:        30,
			PhysicsRate:     50,
			CatchupMaxTicks: 3,
			Gravity:         -9.81,
		},
		Navigation: NavigationConfig{
			Radius:         0.5,
			SeekAcceptable: 0.1,
			FleeAcceptable: 10,
			RestVelocity:   0.1,
		},
		Level: LevelConfig{
			Areas: []navgraph.AreaConfig{{
				Name:         "main",
				Corner1:      [2]int{20, 20},
				Corner2:      [2]int{-20, -20},
				Floor:        -1,
				Ceiling:      5,
				NodesPerStep: 1,
			}},
			Generator:   GeneratorCorner,
			CornerSteps: 3,
			GridSpacing: 4,
		},
		Scenario: ScenarioConfig{
			Kind:   ScenarioWestWorld,
			Agents: 4,
			Seed:   1,
		},
		Logging: LoggingConfig{
			Sinks:           []string{logging.SinkConsole},
			BufferSize:      512,
			MinimumSeverity: "info",
		},
		HTTP: HTTPConfig{
			Address:        ":8080",
			StreamInterval: 250,
		},
		Messages: MessagesConfig{
			Mode: "compact",
			Max:  100,
		},
	}
}

// Normalized fills zero values with defaults and trims strings.
func (c Config) Normalized() Config {
	def := DefaultConfig()
	n := c
	if n.Simulation.TickRate <= 0 {
		n.Simulation.TickRate = def.Simulation.TickRate
	}
	if n.Simulation.PhysicsRate <= 0 {
		n.Simulation.PhysicsRate = def.Simulation.PhysicsRate
	}
	if n.Simulation.CatchupMaxTicks <= 0 {
		n.Simulation.CatchupMaxTicks = 1
	}
	if n.Simulation.MaxAgentsPerTick < 0 {
		n.Simulation.MaxAgentsPerTick = 0
	}
	if n.Navigation.Radius < 0 {
		n.Navigation.Radius = 0
	}
	if n.Navigation.PullMaxHeight < 0 {
		n.Navigation.PullMaxHeight = 0
	}
	n.Navigation.TablePath = strings.TrimSpace(n.Navigation.TablePath)
	n.Level.Generator = strings.ToLower(strings.TrimSpace(n.Level.Generator))
	if n.Level.Generator == "" {
		n.Level.Generator = GeneratorCorner
	}
	if n.Level.CornerSteps <= 0 {
		n.Level.CornerSteps = def.Level.CornerSteps
	}
	if n.Level.GridSpacing <= 0 {
		n.Level.GridSpacing = def.Level.GridSpacing
	}
	for i := range n.Level.Areas {
		n.Level.Areas[i] = n.Level.Areas[i].Normalized()
	}
	n.Scenario.Kind = strings.ToLower(strings.TrimSpace(n.Scenario.Kind))
	if n.Scenario.Kind == "" {
		n.Scenario.Kind = def.Scenario.Kind
	}
	if n.Scenario.Agents < 0 {
		n.Scenario.Agents = 0
	}
	if len(n.Logging.Sinks) == 0 {
		n.Logging.Sinks = def.Logging.Sinks
	}
	if n.Logging.BufferSize <= 0 {
		n.Logging.BufferSize = def.Logging.BufferSize
	}
	if strings.TrimSpace(n.Logging.MinimumSeverity) == "" {
		n.Logging.MinimumSeverity = def.Logging.MinimumSeverity
	}
	if strings.TrimSpace(n.HTTP.Address) == "" {
		n.HTTP.Address = def.HTTP.Address
	}
	if n.HTTP.StreamInterval <= 0 {
		n.HTTP.StreamInterval = def.HTTP.StreamInterval
	}
	if n.Messages.Mode == "" {
		n.Messages.Mode = def.Messages.Mode
	}
	if n.Messages.Max < 0 {
		n.Messages.Max = 0
	}
	return n
}

// Validate reports the first unusable value.
func (c Config) Validate() error {
	switch c.Level.Generator {
	case GeneratorCorner, GeneratorGrid:
	default:
		return errors.Wrapf(ErrInvalid, "unknown generator %q", c.Level.Generator)
	}
	switch c.Scenario.Kind {
	case ScenarioWestWorld, ScenarioEnergy, ScenarioWander:
	default:
		return errors.Wrapf(ErrInvalid, "unknown scenario %q", c.Scenario.Kind)
	}
	if _, ok := parseIntegration(c.Scenario.Integration); !ok {
		return errors.Wrapf(ErrInvalid, "unknown integration %q", c.Scenario.Integration)
	}
	if _, ok := agent.ParseMessageMode(c.Messages.Mode); !ok {
		return errors.Wrapf(ErrInvalid, "unknown message mode %q", c.Messages.Mode)
	}
	if _, ok := logging.ParseSeverity(c.Logging.MinimumSeverity); !ok {
		return errors.Wrapf(ErrInvalid, "unknown severity %q", c.Logging.MinimumSeverity)
	}
	for sink, name := range c.Logging.SinkSeverity {
		if _, ok := logging.ParseSeverity(name); !ok {
			return errors.Wrapf(ErrInvalid, "unknown severity %q for sink %s", name, sink)
		}
	}
	for _, sink := range c.Logging.Sinks {
		switch sink {
		case logging.SinkConsole, logging.SinkJSON, logging.SinkMemory:
		default:
			return errors.Wrapf(ErrInvalid, "unknown logging sink %q", sink)
		}
	}
	if c.Navigation.LoadTable && c.Navigation.TablePath == "" {
		return errors.Wrap(ErrInvalid, "loadTable requires tablePath")
	}
	return nil
}

// Load reads defaults, then path (when not empty), then the environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := Decode(data, filepath.Ext(path), &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := ApplyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode parses data into cfg. YAML is used for .yaml and .yml, HJSON
// (a superset of JSON) for everything else.
func Decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return hjson.Unmarshal(data, cfg)
	}
}

const (
	EnvTickRate         = "EASYAI_TICK_RATE"
	EnvMaxAgentsPerTick = "EASYAI_MAX_AGENTS_PER_TICK"
	EnvHTTPAddr         = "EASYAI_HTTP_ADDR"
	EnvLoadTable        = "EASYAI_LOAD_TABLE"
	EnvTablePath        = "EASYAI_TABLE_PATH"
	EnvScenario         = "EASYAI_SCENARIO"
)

// ApplyEnv overrides cfg from the environment.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	if raw, ok := lookup(EnvTickRate); ok && raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return errors.Wrapf(ErrInvalid, "%s=%q", EnvTickRate, raw)
		}
		cfg.Simulation.TickRate = value
	}
	if raw, ok := lookup(EnvMaxAgentsPerTick); ok && raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return errors.Wrapf(ErrInvalid, "%s=%q", EnvMaxAgentsPerTick, raw)
		}
		cfg.Simulation.MaxAgentsPerTick = value
	}
	if raw, ok := lookup(EnvHTTPAddr); ok && raw != "" {
		cfg.HTTP.Address = raw
	}
	if raw, ok := lookup(EnvLoadTable); ok && raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.Wrapf(ErrInvalid, "%s=%q", EnvLoadTable, raw)
		}
		cfg.Navigation.LoadTable = value
	}
	if raw, ok := lookup(EnvTablePath); ok && raw != "" {
		cfg.Navigation.TablePath = raw
	}
	if raw, ok := lookup(EnvScenario); ok && raw != "" {
		cfg.Scenario.Kind = raw
	}
	return nil
}

func parseIntegration(name string) (agent.Integration, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "transform":
		return agent.Transform, true
	case "physics":
		return agent.Physics, true
	case "character":
		return agent.Character, true
	default:
		return agent.Transform, false
	}
}

// Integration returns the configured integration mode for scenario agents.
func (c Config) Integration() agent.Integration {
	mode, _ := parseIntegration(c.Scenario.Integration)
	return mode
}

// AgentSettings builds the scheduler-wide agent tunables. ground supplies
// the height used by character integration and may be nil.
func (c Config) AgentSettings(ground spatial.HeightFunc) agent.Settings {
	mode, _ := agent.ParseMessageMode(c.Messages.Mode)
	return agent.Settings{
		Tolerances: steering.Tolerances{
			SeekAcceptable: c.Navigation.SeekAcceptable,
			FleeAcceptable: c.Navigation.FleeAcceptable,
		},
		RestVelocity: c.Navigation.RestVelocity,
		Gravity:      c.Simulation.Gravity,
		Ground:       ground,
		MessageMode:  mode,
		MaxMessages:  c.Messages.Max,
	}
}

// SchedulerConfig builds the scheduler configuration.
func (c Config) SchedulerConfig(ground spatial.HeightFunc) scheduler.Config {
	return scheduler.Config{
		MaxAgentsPerTick: c.Simulation.MaxAgentsPerTick,
		Settings:         c.AgentSettings(ground),
	}
}

// LoopConfig builds the tick loop configuration.
func (c Config) LoopConfig() scheduler.LoopConfig {
	return scheduler.LoopConfig{
		TickRate:        c.Simulation.TickRate,
		PhysicsRate:     c.Simulation.PhysicsRate,
		CatchupMaxTicks: c.Simulation.CatchupMaxTicks,
	}
}

// LoggingConfig builds the event router configuration.
func (c Config) LoggingConfig() logging.Config {
	out := logging.DefaultConfig()
	out.EnabledSinks = append([]string(nil), c.Logging.Sinks...)
	out.BufferSize = c.Logging.BufferSize
	if severity, ok := logging.ParseSeverity(c.Logging.MinimumSeverity); ok {
		out.MinimumSeverity = severity
	}
	if len(c.Logging.SinkSeverity) > 0 {
		out.SinkSeverity = make(map[string]logging.Severity, len(c.Logging.SinkSeverity))
		for sink, name := range c.Logging.SinkSeverity {
			if severity, ok := logging.ParseSeverity(name); ok {
				out.SinkSeverity[sink] = severity
			}
		}
	}
	out.Categories = append([]string(nil), c.Logging.Categories...)
	out.JSON.FilePath = c.Logging.JSONFile
	out.Console.Prefix = c.Logging.Prefix
	if c.Logging.MemoryEvents > 0 {
		out.Memory.Capacity = c.Logging.MemoryEvents
	}
	return out
}

// StreamInterval is the websocket snapshot period.
func (c Config) StreamInterval() time.Duration {
	return time.Duration(c.HTTP.StreamInterval) * time.Millisecond
}
