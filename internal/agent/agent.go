// Package agent implements autonomous agents that sense, decide and act once
// per scheduler tick, with a finite state machine for behaviour and steering
// driven movement.
package agent

import (
	"fmt"

	uuid "github.com/satori/go.uuid"

	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/spatial"
	"easy-ai/server/internal/steering"
)

// Integration selects how velocity turns into displacement.
type Integration uint8

const (
	// Transform agents move directly each frame tick.
	Transform Integration = iota
	// Physics agents move on the fixed physics step.
	Physics
	// Character agents move each frame tick and fall under gravity.
	Character
)

func (i Integration) String() string {
	switch i {
	case Physics:
		return "physics"
	case Character:
		return "character"
	default:
		return "transform"
	}
}

// FixedStep reports whether the agent moves on the physics step.
func (i Integration) FixedStep() bool { return i == Physics }

// Options configure a new Agent.
type Options struct {
	Name     string
	Position geom.Vec3
	// Yaw is the initial heading in radians.
	Yaw float64
	// MoveSpeed caps planar speed. Zero defaults to 10.
	MoveSpeed float64
	// MoveAcceleration bounds how fast velocity changes; zero snaps instantly.
	MoveAcceleration float64
	// LookSpeed is the turn rate in radians per second; zero snaps instantly.
	LookSpeed   float64
	Integration Integration
	Sensors     []Sensor
	Actuators   []Actuator
	Measure     PerformanceMeasure
	// Mind overrides the scheduler-wide mind for this agent.
	Mind State
	// State is entered when the agent is registered.
	State State
	// Components are arbitrary per-agent data looked up with ComponentOf.
	Components []any
}

// Agent is a single autonomous actor. It is driven by one scheduler
// goroutine and is not safe for concurrent use.
type Agent struct {
	id   string
	name string
	host Host

	position         geom.Vec3
	yaw              float64
	velocity         geom.Vec2
	verticalVelocity float64
	moveSpeed        float64
	moveAcceleration float64
	lookSpeed        float64
	integration      Integration

	sensors    []Sensor
	actuators  []Actuator
	measure    PerformanceMeasure
	mind       State
	state      State
	stack      []State
	components []any

	actions     []any
	path        []geom.Vec3
	moves       []*steering.Request
	lookTarget  geom.Vec3
	looking     bool
	elapsed     float64
	performance float64
	messages    MessageLog

	started bool
	removed bool
}

const defaultMoveSpeed = 10

func New(opts Options) *Agent {
	id := uuid.NewV4().String()
	name := opts.Name
	if name == "" {
		name = "agent-" + id[:8]
	}
	speed := opts.MoveSpeed
	if speed <= 0 {
		speed = defaultMoveSpeed
	}
	a := &Agent{
		id:               id,
		name:             name,
		position:         opts.Position,
		yaw:              opts.Yaw,
		moveSpeed:        speed,
		moveAcceleration: clampNonNegative(opts.MoveAcceleration),
		lookSpeed:        clampNonNegative(opts.LookSpeed),
		integration:      opts.Integration,
		sensors:          append([]Sensor(nil), opts.Sensors...),
		actuators:        append([]Actuator(nil), opts.Actuators...),
		measure:          opts.Measure,
		mind:             opts.Mind,
		state:            opts.State,
		components:       append([]any(nil), opts.Components...),
	}
	a.host = newDetachedHost()
	return a
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func (a *Agent) ID() string                    { return a.id }
func (a *Agent) Name() string                  { return a.name }
func (a *Agent) String() string                { return a.name }
func (a *Agent) Position() geom.Vec3           { return a.position }
func (a *Agent) Yaw() float64                  { return a.yaw }
func (a *Agent) Velocity() geom.Vec2           { return a.velocity }
func (a *Agent) MoveSpeed() float64            { return a.moveSpeed }
func (a *Agent) MoveAcceleration() float64     { return a.moveAcceleration }
func (a *Agent) LookSpeed() float64            { return a.lookSpeed }
func (a *Agent) Integration() Integration      { return a.integration }
func (a *Agent) Performance() float64          { return a.performance }
func (a *Agent) Elapsed() float64              { return a.elapsed }
func (a *Agent) Host() Host                    { return a.host }
func (a *Agent) Messages() []string            { return a.messages.Messages() }
func (a *Agent) SetPosition(p geom.Vec3)       { a.position = p }
func (a *Agent) SetYaw(yaw float64)            { a.yaw = geom.WrapAngle(yaw) }
func (a *Agent) SetLookSpeed(speed float64)    { a.lookSpeed = clampNonNegative(speed) }
func (a *Agent) SetMoveAcceleration(v float64) { a.moveAcceleration = clampNonNegative(v) }

// SetMoveSpeed changes the speed cap. Non-positive values stop the agent.
func (a *Agent) SetMoveSpeed(speed float64) {
	a.moveSpeed = clampNonNegative(speed)
}

// Moving reports whether the agent currently has planar velocity.
func (a *Agent) Moving() bool {
	return a.velocity != (geom.Vec2{})
}

// Gone reports whether the agent has been removed from its scheduler. It
// lets steering requests that follow this agent expire.
func (a *Agent) Gone() bool { return a.removed }

// Attach binds the agent to a scheduler. It is called by the scheduler.
func (a *Agent) Attach(h Host) {
	if h == nil {
		h = newDetachedHost()
	}
	a.host = h
	a.removed = false
}

// Detach marks the agent removed. It is called by the scheduler.
func (a *Agent) Detach() {
	a.removed = true
	a.host = newDetachedHost()
}

// Start enters the mind and the initial state once.
func (a *Agent) Start() {
	if a.started {
		return
	}
	a.started = true
	if mind := a.Mind(); mind != nil {
		mind.Enter(a)
	}
	if a.state != nil {
		a.state.Enter(a)
	}
}

// Mind returns the agent's own mind or the scheduler-wide one.
func (a *Agent) Mind() State {
	if a.mind != nil {
		return a.mind
	}
	return a.host.Mind()
}

// AddElapsed accumulates time since the last Perform.
func (a *Agent) AddElapsed(dt float64) {
	if dt > 0 {
		a.elapsed += dt
	}
}

// Perform runs one sense-decide-act cycle: the mind, then the current
// state, then queued actions, then the performance measure.
func (a *Agent) Perform() {
	if mind := a.Mind(); mind != nil {
		mind.Execute(a)
	}
	if a.state != nil {
		a.state.Execute(a)
	}
	a.actIncomplete()
	if a.measure != nil {
		a.performance = a.measure.Performance(a)
	}
	a.elapsed = 0
}

// Log records a message on the agent and the scheduler-wide log.
func (a *Agent) Log(message string) {
	settings := a.host.Settings()
	a.messages.Add(message, settings.MessageMode, settings.MaxMessages)
	a.host.Message(a, message)
}

// Logf formats and records a message.
func (a *Agent) Logf(format string, args ...any) {
	a.Log(fmt.Sprintf(format, args...))
}

// ClearMessages empties the agent log.
func (a *Agent) ClearMessages() { a.messages.Clear() }

// ComponentOf returns the first component of type T.
func ComponentOf[T any](a *Agent) (T, bool) {
	for _, c := range a.components {
		if typed, ok := c.(T); ok {
			return typed, true
		}
	}
	var zero T
	return zero, false
}

// Host is the scheduler as seen by an agent.
type Host interface {
	Mind() State
	States() *Registry
	Settings() Settings
	Navigation() Navigation
	Tick() uint64
	StateChanged(a *Agent, from, to State)
	Message(a *Agent, message string)
}

// Navigation answers path queries for agents.
type Navigation interface {
	LookupPath(position, goal geom.Vec3) []geom.Vec3
	Oracle() spatial.Oracle
	Radius() float64
}

// Settings are the scheduler-wide tunables agents read.
type Settings struct {
	Tolerances   steering.Tolerances
	RestVelocity float64
	Gravity      float64
	Ground       spatial.HeightFunc
	MessageMode  MessageMode
	MaxMessages  int
}

// DefaultSettings returns the stock tunables.
func DefaultSettings() Settings {
	return Settings{
		Tolerances:   steering.DefaultTolerances(),
		RestVelocity: 0.1,
		Gravity:      -9.81,
		MessageMode:  MessageCompact,
		MaxMessages:  100,
	}
}

// directNavigation walks straight to every goal.
type directNavigation struct{}

func (directNavigation) LookupPath(_, goal geom.Vec3) []geom.Vec3 { return []geom.Vec3{goal} }
func (directNavigation) Oracle() spatial.Oracle                   { return nil }
func (directNavigation) Radius() float64                          { return 0 }

// DirectNavigation is a Navigation without obstacles.
var DirectNavigation Navigation = directNavigation{}

// detachedHost serves agents that are not registered with a scheduler.
type detachedHost struct {
	registry *Registry
}

func newDetachedHost() *detachedHost {
	return &detachedHost{registry: NewRegistry()}
}

func (h *detachedHost) Mind() State                       { return nil }
func (h *detachedHost) States() *Registry                 { return h.registry }
func (h *detachedHost) Settings() Settings                { return DefaultSettings() }
func (h *detachedHost) Navigation() Navigation            { return DirectNavigation }
func (h *detachedHost) Tick() uint64                      { return 0 }
func (h *detachedHost) StateChanged(*Agent, State, State) {}
func (h *detachedHost) Message(*Agent, string)            {}
