package agent

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/spatial"
	"easy-ai/server/internal/steering"
)

type trace struct{ events []string }

func record(a *Agent, event string) {
	if tr, ok := ComponentOf[*trace](a); ok {
		tr.events = append(tr.events, event)
	}
}

type idleState struct{}

func (*idleState) Enter(a *Agent)   { record(a, "idle.enter") }
func (*idleState) Execute(a *Agent) { record(a, "idle.execute") }
func (*idleState) Exit(a *Agent)    { record(a, "idle.exit") }

type walkState struct{ BaseState }

func (*walkState) Enter(a *Agent) { record(a, "walk.enter") }
func (*walkState) Exit(a *Agent)  { record(a, "walk.exit") }

type testHost struct {
	registry *Registry
	settings Settings
	nav      Navigation
	changes  []string
	messages []string
}

func newTestHost() *testHost {
	return &testHost{registry: NewRegistry(), settings: DefaultSettings(), nav: DirectNavigation}
}

func (h *testHost) Mind() State            { return nil }
func (h *testHost) States() *Registry      { return h.registry }
func (h *testHost) Settings() Settings     { return h.settings }
func (h *testHost) Navigation() Navigation { return h.nav }
func (h *testHost) Tick() uint64           { return 1 }
func (h *testHost) StateChanged(_ *Agent, from, to State) {
	h.changes = append(h.changes, StateName(from)+"->"+StateName(to))
}
func (h *testHost) Message(a *Agent, message string) {
	h.messages = append(h.messages, a.Name()+": "+message)
}

type fixedNavigation struct {
	path   []geom.Vec3
	oracle spatial.Oracle
	calls  int
}

func (n *fixedNavigation) LookupPath(_, goal geom.Vec3) []geom.Vec3 {
	n.calls++
	return append(append([]geom.Vec3(nil), n.path...), goal)
}
func (n *fixedNavigation) Oracle() spatial.Oracle { return n.oracle }
func (n *fixedNavigation) Radius() float64        { return 0 }

func newTraced(t *testing.T) (*Agent, *trace, *testHost) {
	t.Helper()
	tr := &trace{}
	a := New(Options{Name: "tester", Components: []any{tr}})
	host := newTestHost()
	a.Attach(host)
	return a, tr, host
}

func TestSetStateRunsExitBeforeEnter(t *testing.T) {
	a, tr, host := newTraced(t)

	SetState[idleState](a)
	SetState[idleState](a)
	SetState[walkState](a)

	assert.Equal(t, []string{"idle.enter", "idle.exit", "walk.enter"}, tr.events)
	assert.Equal(t, []string{"->idleState", "idleState->walkState"}, host.changes)
	assert.True(t, IsInState[walkState](a))
	assert.False(t, IsInState[idleState](a))
}

func TestStatesAreSharedAcrossAgents(t *testing.T) {
	host := newTestHost()
	first, second := New(Options{}), New(Options{})
	first.Attach(host)
	second.Attach(host)

	SetState[idleState](first)
	SetState[idleState](second)

	assert.Same(t, first.State(), second.State())
	assert.Equal(t, 1, host.registry.Len())
}

func TestPushAndPopState(t *testing.T) {
	a, tr, _ := newTraced(t)
	SetState[idleState](a)
	PushState[walkState](a)
	require.Equal(t, 1, a.StackDepth())

	assert.True(t, a.PopState())
	assert.True(t, IsInState[idleState](a))
	assert.False(t, a.PopState())
	assert.Equal(t, []string{"idle.enter", "idle.exit", "walk.enter", "walk.exit", "idle.enter"}, tr.events)
}

func TestStartEntersInitialStateOnce(t *testing.T) {
	tr := &trace{}
	a := New(Options{State: &idleState{}, Components: []any{tr}})
	a.Start()
	a.Start()
	a.Perform()
	assert.Equal(t, []string{"idle.enter", "idle.execute"}, tr.events)
}

type openDoor struct{ door string }

type moveOrder struct{ x float64 }

// stubbornActuator completes an openDoor only after a number of attempts.
type stubbornActuator struct {
	needed   int
	attempts int
}

func (s *stubbornActuator) Act(_ *Agent, action any) bool {
	if _, ok := action.(openDoor); !ok {
		return false
	}
	s.attempts++
	return s.attempts >= s.needed
}

func TestIncompleteActionsPersistUntilComplete(t *testing.T) {
	act := &stubbornActuator{needed: 3}
	a := New(Options{Actuators: []Actuator{act}})

	a.Act(openDoor{door: "cellar"})
	require.True(t, HasAction[openDoor](a))

	a.Perform()
	assert.True(t, HasAction[openDoor](a))
	a.Perform()
	assert.False(t, HasAction[openDoor](a))
	assert.Equal(t, 3, act.attempts)

	a.Perform()
	assert.Equal(t, 3, act.attempts)
}

func TestActReplacesQueuedActionOfSameType(t *testing.T) {
	a := New(Options{})
	a.Act(moveOrder{x: 1})
	a.Act(openDoor{door: "front"})
	a.Act(moveOrder{x: 2})

	assert.Equal(t, []any{moveOrder{x: 2}, openDoor{door: "front"}}, a.Actions())

	RemoveAction[moveOrder](a)
	assert.False(t, HasAction[moveOrder](a))
	a.ClearActions()
	assert.Empty(t, a.Actions())
}

func TestActCompletingImmediatelyDropsQueuedCopy(t *testing.T) {
	act := &stubbornActuator{needed: 2}
	a := New(Options{Actuators: []Actuator{act}})
	a.Act(openDoor{door: "a"})
	require.True(t, HasAction[openDoor](a))
	a.Act(openDoor{door: "b"})
	assert.False(t, HasAction[openDoor](a))
}

type rangeSensor struct{ reading float64 }

func (s *rangeSensor) Sense(*Agent) any { return s.reading }

func TestSenseFiltersBySensorAndPerceptType(t *testing.T) {
	a := New(Options{Sensors: []Sensor{
		SensorFunc(func(*Agent) any { return "noise" }),
		&rangeSensor{reading: 4},
		&rangeSensor{reading: 7},
	}})

	got, ok := Sense[*rangeSensor, float64](a)
	require.True(t, ok)
	assert.Equal(t, 4.0, got)
	assert.Equal(t, []float64{4, 7}, SenseAll[*rangeSensor, float64](a))

	_, ok = Sense[*rangeSensor, string](a)
	assert.False(t, ok)
	assert.Len(t, a.SenseEverything(), 3)
}

func TestPerformanceMeasure(t *testing.T) {
	a := New(Options{Measure: PerformanceFunc(func(a *Agent) float64 { return a.Position()[0] })})
	a.SetPosition(geom.V(3, 0, 0))
	a.AddElapsed(0.5)
	a.Perform()
	assert.Equal(t, 3.0, a.Performance())
	assert.Zero(t, a.Elapsed())
}

func TestVelocityNeverExceedsMoveSpeed(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 50; trial++ {
		a := New(Options{MoveSpeed: 1 + rng.Float64()*5, MoveAcceleration: rng.Float64() * 20})
		for i := 0; i < 3; i++ {
			b := steering.Behavior(rng.Intn(4))
			a.AddMove(geom.V(rng.Float64()*40-20, 0, rng.Float64()*40-20), b)
		}
		for step := 0; step < 100; step++ {
			dt := 0.01 + rng.Float64()*0.1
			a.CalculateMoveVelocity(dt)
			require.LessOrEqual(t, a.Velocity().Len(), a.MoveSpeed()+1e-9)
			a.Integrate(dt)
		}
	}
}

func TestSnapModeReachesFullSpeedAtOnce(t *testing.T) {
	a := New(Options{MoveSpeed: 4})
	a.Move(geom.V(10, 0, 0), steering.Seek)
	a.CalculateMoveVelocity(0.1)
	assert.InDelta(t, 4, a.Velocity()[0], 1e-9)
	a.CalculateMoveVelocity(0.1)
	assert.InDelta(t, 4, a.Velocity()[0], 1e-9)
}

func TestVelocityDecaysToRest(t *testing.T) {
	a := New(Options{MoveSpeed: 5, MoveAcceleration: 2})
	a.velocity = geom.Vec2{4, 0}

	a.CalculateMoveVelocity(0.1)
	assert.InDelta(t, 3.2, a.Velocity()[0], 1e-9)

	for i := 0; i < 200 && a.Moving(); i++ {
		a.CalculateMoveVelocity(0.1)
	}
	assert.False(t, a.Moving())

	snap := New(Options{})
	snap.velocity = geom.Vec2{3, 3}
	snap.CalculateMoveVelocity(0.1)
	assert.False(t, snap.Moving())
}

func TestCompletedMovesAreDropped(t *testing.T) {
	a := New(Options{})
	a.AddMove(geom.V(0, 0, 0.05), steering.Seek)
	assert.Empty(t, a.Moves())

	a.AddMove(geom.V(5, 0, 0), steering.Seek)
	a.AddMove(geom.V(5, 0, 0), steering.Seek)
	a.AddMove(geom.V(5, 0, 0), steering.Flee)
	moves := a.Moves()
	require.Len(t, moves, 1)
	assert.Equal(t, steering.Flee, moves[0].Behavior)
}

type beacon struct{ pos geom.Vec3 }

func (b *beacon) Position() geom.Vec3 { return b.pos }

func TestForgetTarget(t *testing.T) {
	a := New(Options{})
	target := &beacon{pos: geom.V(10, 0, 0)}
	a.AddFollow(target, steering.Pursue)
	a.AddMove(geom.V(-10, 0, 0), steering.Seek)

	assert.Equal(t, 1, a.ForgetTarget(target))
	moves := a.Moves()
	require.Len(t, moves, 1)
	assert.Nil(t, moves[0].Target())
}

func TestFollowingRemovedAgentExpires(t *testing.T) {
	leader := New(Options{Position: geom.V(10, 0, 0)})
	follower := New(Options{})
	follower.Follow(leader, steering.Pursue)

	leader.Detach()
	follower.CalculateMoveVelocity(0.1)
	assert.Empty(t, follower.Moves())
}

func TestPathShortcutsVisibleWaypoints(t *testing.T) {
	a, _, host := newTraced(t)
	nav := &fixedNavigation{path: []geom.Vec3{geom.V(1, 0, 0), geom.V(1, 0, 5)}}
	host.nav = nav

	require.True(t, a.Navigate(geom.V(6, 0, 5)))
	assert.False(t, a.Navigate(geom.V(6, 0, 5)))
	assert.Equal(t, 1, nav.calls)

	a.CalculateMoveVelocity(0.1)
	assert.Equal(t, []geom.Vec3{geom.V(6, 0, 5)}, a.Path())
	assert.True(t, a.Moving())
}

func TestPathKeepsBlockedWaypoints(t *testing.T) {
	a, _, host := newTraced(t)
	host.nav = &fixedNavigation{
		path:   []geom.Vec3{geom.V(0, 0, 0.05), geom.V(1, 0, 0)},
		oracle: spatial.OracleFunc(func(_, _ geom.Vec3, _ float64) bool { return false }),
	}
	a.Navigate(geom.V(1, 0, 5))

	a.CalculateMoveVelocity(0.1)
	assert.Equal(t, []geom.Vec3{geom.V(1, 0, 0), geom.V(1, 0, 5)}, a.Path())

	a.StopNavigating()
	_, ok := a.Destination()
	assert.False(t, ok)
}

func TestCharacterFallsToGround(t *testing.T) {
	a, _, host := newTraced(t)
	host.settings.Ground = func(x, z float64) float64 { return 1 }
	a.integration = Character
	a.SetPosition(geom.V(0, 3, 0))

	for i := 0; i < 100; i++ {
		a.Integrate(0.05)
	}
	assert.InDelta(t, 1, a.Position()[1], 1e-9)
	assert.Zero(t, a.verticalVelocity)
}

func TestTransformIgnoresHeight(t *testing.T) {
	a := New(Options{Position: geom.V(0, 2, 0)})
	a.velocity = geom.Vec2{1, 2}
	a.Integrate(0.5)
	assert.Equal(t, geom.V(0.5, 2, 1), a.Position())
}

func TestLookCalculations(t *testing.T) {
	a := New(Options{})
	a.LookAt(geom.V(1, 0, 0))
	a.LookCalculations(0.1)
	assert.InDelta(t, math.Pi/2, a.Yaw(), 1e-9)

	slow := New(Options{LookSpeed: 1})
	slow.LookAt(geom.V(-1, 0, 0))
	slow.LookCalculations(0.5)
	assert.InDelta(t, -0.5, slow.Yaw(), 1e-9)

	slow.StopLooking()
	slow.velocity = geom.Vec2{0, 1}
	slow.LookCalculations(1)
	assert.InDelta(t, 0, slow.Yaw(), 1e-9)
}

func TestMessageModes(t *testing.T) {
	var all, compact, unique MessageLog
	for _, m := range []string{"a", "b", "b", "a"} {
		all.Add(m, MessageAll, 10)
		compact.Add(m, MessageCompact, 10)
		unique.Add(m, MessageUnique, 10)
	}
	assert.Equal(t, []string{"a", "b", "b", "a"}, all.Messages())
	assert.Equal(t, []string{"a", "b", "a"}, compact.Messages())
	assert.Equal(t, []string{"a", "b"}, unique.Messages())

	var capped MessageLog
	for _, m := range []string{"1", "2", "3"} {
		capped.Add(m, MessageAll, 2)
	}
	assert.Equal(t, []string{"3", "2"}, capped.Messages())

	mode, ok := ParseMessageMode("unique")
	assert.True(t, ok)
	assert.Equal(t, MessageUnique, mode)
}

func TestLogReachesHost(t *testing.T) {
	a, _, host := newTraced(t)
	a.Logf("found %d nuggets", 2)
	a.Log("found 2 nuggets")
	assert.Equal(t, []string{"found 2 nuggets"}, a.Messages())
	assert.Equal(t, []string{"tester: found 2 nuggets", "tester: found 2 nuggets"}, host.messages)
}

func TestComponentOf(t *testing.T) {
	tr := &trace{}
	a := New(Options{Components: []any{"label", tr}})
	got, ok := ComponentOf[*trace](a)
	require.True(t, ok)
	assert.Same(t, tr, got)
	_, ok = ComponentOf[int](a)
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	a, _, _ := newTraced(t)
	SetState[idleState](a)
	a.Log("one")
	a.Log("two")
	snap := a.Snapshot(1)
	assert.Equal(t, "tester", snap.Name)
	assert.Equal(t, "idleState", snap.State)
	assert.Equal(t, []string{"two"}, snap.Messages)
	assert.NotEmpty(t, snap.ID)
}
