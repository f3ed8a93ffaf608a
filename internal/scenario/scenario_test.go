package scenario

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easy-ai/server/internal/agent"
	"easy-ai/server/internal/config"
	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/navgraph"
	"easy-ai/server/internal/scheduler"
	"easy-ai/server/internal/spatial"
	"easy-ai/server/logging"
	loggingNavigation "easy-ai/server/logging/navigation"
	"easy-ai/server/logging/sinks"
)

func pillarConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Level.Areas = []navgraph.AreaConfig{{
		Name:    "yard",
		Corner1: [2]int{10, 10},
		Corner2: [2]int{-10, -10},
		Floor:   -1,
		Ceiling: 5,
	}}
	cfg.Level.Obstacles = []spatial.Box{spatial.NewBox("pillar", geom.V(-2, 0, -2), geom.V(2, 3, 2))}
	cfg.Navigation.Workers = 2
	return cfg.Normalized()
}

type capture struct {
	events []logging.Event
}

func (c *capture) Publish(_ context.Context, e logging.Event) { c.events = append(c.events, e) }

func (c *capture) count(kind logging.EventType) int {
	n := 0
	for _, e := range c.events {
		if e.Type == kind {
			n++
		}
	}
	return n
}

func TestBuildWorldRoutesAroundPillar(t *testing.T) {
	pub := &capture{}
	w, err := BuildWorld(context.Background(), pillarConfig(t), Deps{Publisher: pub})
	require.NoError(t, err)

	require.Equal(t, 4, w.Graph.Len())
	assert.Equal(t, 1, pub.count(loggingNavigation.EventGraphBuilt))
	assert.Equal(t, 1, pub.count(loggingNavigation.EventTableBuilt))

	from, to := geom.V(-6, 0, 0), geom.V(6, 0, 0)
	path := w.Navigator.LookupPath(from, to)
	require.GreaterOrEqual(t, len(path), 2)
	assert.Equal(t, to, path[len(path)-1])
	legs := append([]geom.Vec3{from}, path...)
	for i := 1; i < len(legs); i++ {
		assert.True(t, spatial.Clear(w.Oracle, legs[i-1], legs[i], 0.5), "leg %v -> %v", legs[i-1], legs[i])
	}
}

func TestBuildWorldSavesAndReloadsTable(t *testing.T) {
	cfg := pillarConfig(t)
	cfg.Navigation.TablePath = filepath.Join(t.TempDir(), "yard.msgpack")
	built, err := BuildWorld(context.Background(), cfg, Deps{})
	require.NoError(t, err)

	cfg.Navigation.LoadTable = true
	pub := &capture{}
	loaded, err := BuildWorld(context.Background(), cfg, Deps{Publisher: pub})
	require.NoError(t, err)

	assert.True(t, loaded.Loaded)
	assert.Equal(t, built.Table.Len(), loaded.Table.Len())
	assert.ElementsMatch(t, built.Graph.Nodes(), loaded.Graph.Nodes())
	assert.Equal(t, 1, pub.count(loggingNavigation.EventTableLoaded))
}

func TestBuildWorldMissingTable(t *testing.T) {
	cfg := pillarConfig(t)
	cfg.Navigation.LoadTable = true
	cfg.Navigation.TablePath = filepath.Join(t.TempDir(), "absent.msgpack")
	_, err := BuildWorld(context.Background(), cfg, Deps{})
	assert.Error(t, err)
}

func TestEnergyAgentCyclesBetweenStates(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig())
	a := NewEnergyAgent("sparky", geom.Vec3{}, 1, agent.Transform)
	require.True(t, s.Add(a))
	energy, ok := agent.ComponentOf[*Energy](a)
	require.True(t, ok)

	rested, moved := false, false
	for i := 0; i < 20; i++ {
		s.Tick(0.5)
		rested = rested || agent.IsInState[EnergyRestState](a)
		moved = moved || agent.IsInState[EnergyMoveState](a)
		require.GreaterOrEqual(t, energy.Level, 0.0)
		require.LessOrEqual(t, energy.Level, energy.Max)
	}
	assert.True(t, rested)
	assert.True(t, moved)
	assert.Contains(t, s.Messages(), "sparky: I've got to recharge.")
}

func TestEnergyActuatorIgnoresOtherActions(t *testing.T) {
	a := NewEnergyAgent("sparky", geom.Vec3{}, 1, agent.Transform)
	a.Act("dance")
	assert.Equal(t, []any{"dance"}, a.Actions())
}

func TestWestWorldMinerGoesHomeAfterBanking(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig())
	bob, elsa := NewWestWorld(nil, rand.New(rand.NewSource(3)), agent.Transform)
	s.Add(bob)
	s.Add(elsa)

	for i := 0; i < 6; i++ {
		s.Tick(0.1)
	}
	m, ok := agent.ComponentOf[*Miner](bob)
	require.True(t, ok)
	assert.Equal(t, 4, m.MoneyInBank)
	assert.Equal(t, Home, m.Location)
	assert.Contains(t, s.Messages(), "Elsa: Hi honey. Let me make you some of mah fine country stew.")
}

func TestStewReadyOnlyWakesMinerAtHome(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig())
	bob, elsa := NewWestWorld(nil, rand.New(rand.NewSource(1)), agent.Transform)
	s.Add(bob)
	s.Add(elsa)
	require.True(t, agent.IsInState[EnterMineAndDigForNugget](bob))

	Receive(bob, StewReady)
	assert.True(t, agent.IsInState[EnterMineAndDigForNugget](bob))

	agent.SetState[GoHomeAndSleepTillRested](bob)
	Send(elsa, StewReady)
	assert.True(t, agent.IsInState[EatStew](bob))
}

func TestBathroomReturnsToPreviousState(t *testing.T) {
	s := scheduler.New(scheduler.DefaultConfig())
	bob, elsa := NewWestWorld(nil, rand.New(rand.NewSource(1)), agent.Transform)
	s.Add(bob)
	s.Add(elsa)
	agent.SetState[CookStew](elsa)

	agent.PushState[VisitBathroom](elsa)
	(&VisitBathroom{}).Execute(elsa)

	assert.True(t, agent.IsInState[CookStew](elsa))
	assert.Zero(t, elsa.StackDepth())
}

func TestWestWorldWalksBetweenPlaces(t *testing.T) {
	cfg := pillarConfig(t)
	w, err := BuildWorld(context.Background(), cfg, Deps{})
	require.NoError(t, err)
	places := w.Places(cfg.Level)
	require.Len(t, places, 4)
	for _, p := range places {
		assert.True(t, w.Graph.HasNode(p))
	}

	s := scheduler.New(cfg.SchedulerConfig(w.Ground()), scheduler.WithNavigation(w.Navigator))
	added := Populate(s, w, cfg)
	require.Len(t, added, 2)
	bob := added[0]
	dest, ok := bob.Destination()
	require.True(t, ok)
	assert.Equal(t, places[GoldMine], dest)
}

func TestWanderersReachGoals(t *testing.T) {
	cfg := pillarConfig(t)
	cfg.Scenario.Kind = config.ScenarioWander
	cfg.Scenario.Agents = 2
	w, err := BuildWorld(context.Background(), cfg, Deps{})
	require.NoError(t, err)

	s := scheduler.New(cfg.SchedulerConfig(w.Ground()), scheduler.WithNavigation(w.Navigator))
	added := Populate(s, w, cfg)
	require.Len(t, added, 2)

	for i := 0; i < 400; i++ {
		s.Tick(0.05)
	}
	for _, a := range added {
		wanderer, ok := agent.ComponentOf[*Wanderer](a)
		require.True(t, ok)
		assert.Positive(t, wanderer.Reached, a.Name())
	}
	best, ok := s.Best()
	require.True(t, ok)
	assert.Positive(t, best.Performance())
}

func TestPopulateEnergyUsesMemorySink(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scenario.Kind = config.ScenarioEnergy
	cfg.Scenario.Agents = 3
	cfg = cfg.Normalized()

	memory := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, cfg.LoggingConfig(), []logging.NamedSink{{Name: logging.SinkMemory, Sink: memory}})
	require.NoError(t, err)

	s := scheduler.New(cfg.SchedulerConfig(nil), scheduler.WithPublisher(router))
	added := Populate(s, nil, cfg)
	require.NoError(t, router.Close(context.Background()))

	assert.Len(t, added, 3)
	assert.Len(t, memory.OfType("agents.registered"), 3)
}
