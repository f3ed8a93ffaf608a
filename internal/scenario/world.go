// Package scenario builds levels with their navigation data and populates
// schedulers with the demo agents.
package scenario

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"easy-ai/server/internal/agent"
	"easy-ai/server/internal/config"
	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/navgraph"
	"easy-ai/server/internal/navtable"
	"easy-ai/server/internal/scheduler"
	"easy-ai/server/internal/spatial"
	"easy-ai/server/internal/telemetry"
	"easy-ai/server/logging"
	loggingNavigation "easy-ai/server/logging/navigation"
)

// World is a level together with its navigation graph and table.
type World struct {
	Level     spatial.Level
	Oracle    spatial.Oracle
	Graph     *navgraph.Graph
	Table     *navtable.Table
	Navigator *navtable.Navigator
	Report    navgraph.BuildReport
	// Loaded is set when the table came from disk instead of being built.
	Loaded bool
}

// Deps are the shared services used while building a world.
type Deps struct {
	Publisher logging.Publisher
	Logger    telemetry.Logger
	// Tick stamps navigation events raised after startup.
	Tick func() uint64
}

// NewLevel builds the level geometry and its line of sight oracle.
func NewLevel(cfg config.LevelConfig) (spatial.Level, spatial.Oracle) {
	level := spatial.Level{
		Terrain:   spatial.NewTerrain(cfg.Terrain),
		Obstacles: append([]spatial.Box(nil), cfg.Obstacles...),
	}
	if cfg.Physics {
		return level, spatial.NewPhysicsOracle(level.Obstacles)
	}
	return level, level.Oracle()
}

// Generator returns the node generator named in cfg.
func Generator(cfg config.LevelConfig) navgraph.Generator {
	if cfg.Generator == config.GeneratorGrid {
		return navgraph.GridGenerator{Spacing: cfg.GridSpacing}
	}
	return navgraph.CornerGenerator{Steps: cfg.CornerSteps}
}

// BuildWorld prepares the level and its navigation data. With LoadTable set
// the table is read from TablePath and the graph rebuilt from it; otherwise
// the graph is generated, every route computed and, when TablePath is set,
// the table written out.
func BuildWorld(ctx context.Context, cfg config.Config, deps Deps) (*World, error) {
	pub := deps.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	level, oracle := NewLevel(cfg.Level)
	w := &World{Level: level, Oracle: oracle}

	if cfg.Navigation.LoadTable {
		table, err := navtable.Load(cfg.Navigation.TablePath)
		if err != nil {
			return nil, err
		}
		w.Table = table
		w.Graph = table.Graph()
		w.Loaded = true
		loggingNavigation.TableLoaded(ctx, pub, 0, loggingNavigation.TablePayload{
			Entries: table.Len(),
			Nodes:   w.Graph.Len(),
			Path:    cfg.Navigation.TablePath,
		}, nil)
	} else {
		builder := navgraph.Builder{
			Ground:    level,
			Oracle:    oracle,
			Generator: Generator(cfg.Level),
			Radius:    cfg.Navigation.Radius,
			DumpDir:   cfg.Level.DumpDir,
			DumpName:  "area",
		}
		graph, report := builder.Build(cfg.Level.Areas, cfg.Level.Nodes)
		w.Graph, w.Report = graph, report
		for _, err := range report.DumpErrors {
			if deps.Logger != nil {
				deps.Logger.Printf("[navigation] grid dump failed: %v", err)
			}
		}
		loggingNavigation.GraphBuilt(ctx, pub, 0, loggingNavigation.GraphBuiltPayload{
			Areas:       report.Areas,
			Nodes:       report.Nodes,
			Connections: report.Connections,
			Pruned:      report.Pruned,
			Dumps:       report.Dumps,
		}, nil)

		start := time.Now()
		table, err := navtable.BuildAll(ctx, graph, navtable.BuildOptions{Workers: cfg.Navigation.Workers})
		if err != nil {
			return nil, errors.Wrap(err, "build navigation table")
		}
		w.Table = table
		saved := ""
		if cfg.Navigation.TablePath != "" {
			if err := table.Save(cfg.Navigation.TablePath); err != nil {
				return nil, err
			}
			saved = cfg.Navigation.TablePath
		}
		loggingNavigation.TableBuilt(ctx, pub, 0, loggingNavigation.TablePayload{
			Entries:        table.Len(),
			Nodes:          graph.Len(),
			DurationMillis: time.Since(start).Milliseconds(),
			Path:           saved,
		}, nil)
	}

	w.Navigator = navtable.NewNavigator(w.Graph, w.Table, navtable.NavigatorConfig{
		Oracle:        oracle,
		Radius:        cfg.Navigation.Radius,
		PullMaxHeight: cfg.Navigation.PullMaxHeight,
		StrictNearest: cfg.Navigation.StrictNearest,
		Publisher:     pub,
		Tick:          deps.Tick,
	})
	return w, nil
}

// Ground is the walkable height used by character integration.
func (w *World) Ground() spatial.HeightFunc {
	if w == nil || w.Level.Terrain == nil {
		return nil
	}
	return w.Level.Terrain
}

// Places spreads the West World locations over the level. Each one snaps to
// the nearest graph node when the level has one.
func (w *World) Places(cfg config.LevelConfig) map[Location]geom.Vec3 {
	lo, hi := geom.V(-10, 0, -10), geom.V(10, 0, 10)
	if len(cfg.Areas) > 0 {
		a := cfg.Areas[0].Normalized()
		lo = geom.V(float64(a.Corner2[0]), 0, float64(a.Corner2[1]))
		hi = geom.V(float64(a.Corner1[0]), 0, float64(a.Corner1[1]))
	}
	inset := func(fx, fz float64) geom.Vec3 {
		return geom.V(lo[0]+(hi[0]-lo[0])*fx, 0, lo[2]+(hi[2]-lo[2])*fz)
	}
	places := map[Location]geom.Vec3{
		Home:     inset(0.2, 0.2),
		GoldMine: inset(0.8, 0.8),
		Bank:     inset(0.8, 0.2),
		Saloon:   inset(0.2, 0.8),
	}
	if w == nil {
		return places
	}
	for loc, p := range places {
		if node, ok := w.Graph.Nearest(p, nil, 0, false); ok {
			places[loc] = node
			continue
		}
		places[loc] = w.Level.Snap(p)
	}
	return places
}

// Populate adds the configured scenario's agents to s.
func Populate(s *scheduler.Scheduler, w *World, cfg config.Config) []*agent.Agent {
	rng := rand.New(rand.NewSource(cfg.Scenario.Seed))
	integration := cfg.Integration()
	var added []*agent.Agent
	add := func(a *agent.Agent) {
		if s.Add(a) {
			added = append(added, a)
		}
	}

	switch cfg.Scenario.Kind {
	case config.ScenarioEnergy:
		agent.Register[EnergyMoveState](s.Registry(), &EnergyMoveState{Rand: rng})
		for i := 0; i < max(cfg.Scenario.Agents, 1); i++ {
			pos := randomPoint(rng, cfg.Level)
			if w != nil {
				pos = w.Level.Snap(pos)
			}
			add(NewEnergyAgent(fmt.Sprintf("energy-%d", i+1), pos, 3+rng.Float64()*4, integration))
		}
	case config.ScenarioWander:
		var goals []geom.Vec3
		if w != nil && w.Graph != nil {
			goals = w.Graph.Nodes()
		}
		for i := 0; i < max(cfg.Scenario.Agents, 1); i++ {
			start := randomPoint(rng, cfg.Level)
			if len(goals) > 0 {
				start = goals[rng.Intn(len(goals))]
			}
			add(NewWanderer(fmt.Sprintf("wanderer-%d", i+1), start, goals, rand.New(rand.NewSource(rng.Int63())), integration))
		}
	default:
		minerAgent, keeperAgent := NewWestWorld(w.Places(cfg.Level), rng, integration)
		add(minerAgent)
		add(keeperAgent)
	}
	return added
}

func randomPoint(rng *rand.Rand, cfg config.LevelConfig) geom.Vec3 {
	if len(cfg.Areas) == 0 {
		return geom.V(rng.Float64()*20-10, 0, rng.Float64()*20-10)
	}
	a := cfg.Areas[0].Normalized()
	x := float64(a.Corner2[0]) + rng.Float64()*float64(a.Corner1[0]-a.Corner2[0])
	z := float64(a.Corner2[1]) + rng.Float64()*float64(a.Corner1[1]-a.Corner2[1])
	return geom.V(x, 0, z)
}
