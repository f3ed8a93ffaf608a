package scenario

import (
	"math"
	"math/rand"

	"easy-ai/server/internal/agent"
	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/steering"
)

// Energy is a rechargeable reserve. Max is the level it started with.
type Energy struct {
	Max   float64
	Level float64
}

func NewEnergy(level float64) *Energy {
	return &Energy{Max: level, Level: level}
}

// Replenish adds amount, capped at Max.
func (e *Energy) Replenish(amount float64) {
	e.Level = math.Min(e.Level+amount, e.Max)
}

// Deplete removes amount, floored at zero.
func (e *Energy) Deplete(amount float64) {
	e.Level = math.Max(e.Level-amount, 0)
}

// EnergySensor perceives the agent's own Energy component.
type EnergySensor struct{}

func (EnergySensor) Sense(a *agent.Agent) any {
	if e, ok := agent.ComponentOf[*Energy](a); ok {
		return e
	}
	return nil
}

// RestoreEnergy and DepleteEnergy are actions carried out by EnergyActuator.
type RestoreEnergy struct{ Energy *Energy }

type DepleteEnergy struct{ Energy *Energy }

// EnergyActuator changes energy by the time since the agent last performed.
type EnergyActuator struct{}

func (EnergyActuator) Act(a *agent.Agent, action any) bool {
	switch act := action.(type) {
	case RestoreEnergy:
		if act.Energy != nil {
			act.Energy.Replenish(a.Elapsed())
		}
		return true
	case DepleteEnergy:
		if act.Energy != nil {
			act.Energy.Deplete(a.Elapsed())
		}
		return true
	}
	return false
}

func senseEnergy(a *agent.Agent) *Energy {
	e, _ := agent.Sense[EnergySensor, *Energy](a)
	return e
}

// EnergyMind rests when the reserve is empty and moves once it is full.
type EnergyMind struct{ agent.BaseState }

func (*EnergyMind) Execute(a *agent.Agent) {
	e := senseEnergy(a)
	if e == nil {
		return
	}
	if e.Level <= 0 {
		agent.SetState[EnergyRestState](a)
		return
	}
	if e.Level >= e.Max {
		agent.SetState[EnergyMoveState](a)
	}
}

// EnergyMoveState wanders in small random steps, burning energy.
type EnergyMoveState struct {
	// Rand picks step directions. Nil uses the package source.
	Rand *rand.Rand
}

func (*EnergyMoveState) Enter(a *agent.Agent) { a.Log("Ready to move.") }

func (s *EnergyMoveState) Execute(a *agent.Agent) {
	a.Log("Moving randomly to burn this energy.")
	step := randomInUnitCircle(s.Rand)
	a.Move(a.Position().Add(geom.Lift(step, 0)), steering.Seek)
	a.Act(DepleteEnergy{Energy: senseEnergy(a)})
}

func (*EnergyMoveState) Exit(a *agent.Agent) { a.Log("Been moving for a while, getting tired.") }

// EnergyRestState stands still and recharges.
type EnergyRestState struct{}

func (*EnergyRestState) Enter(a *agent.Agent) {
	a.StopMoving()
	a.Log("I've got to recharge.")
}

func (*EnergyRestState) Execute(a *agent.Agent) {
	a.Log("Replenishing...")
	a.Act(RestoreEnergy{Energy: senseEnergy(a)})
}

func (*EnergyRestState) Exit(a *agent.Agent) { a.Log("Got all energy back.") }

// EnergyPerformance scores an agent by its remaining energy fraction.
func EnergyPerformance(a *agent.Agent) float64 {
	e, ok := agent.ComponentOf[*Energy](a)
	if !ok || e.Max <= 0 {
		return 0
	}
	return e.Level / e.Max
}

// NewEnergyAgent builds an agent for the energy demo.
func NewEnergyAgent(name string, position geom.Vec3, energy float64, integration agent.Integration) *agent.Agent {
	return agent.New(agent.Options{
		Name:        name,
		Position:    position,
		MoveSpeed:   3,
		Integration: integration,
		Sensors:     []agent.Sensor{EnergySensor{}},
		Actuators:   []agent.Actuator{EnergyActuator{}},
		Measure:     agent.PerformanceFunc(EnergyPerformance),
		Mind:        &EnergyMind{},
		Components:  []any{NewEnergy(energy)},
	})
}

func randomInUnitCircle(rng *rand.Rand) geom.Vec2 {
	float := rand.Float64
	if rng != nil {
		float = rng.Float64
	}
	angle := float() * 2 * math.Pi
	radius := math.Sqrt(float())
	return geom.Vec2{radius * math.Cos(angle), radius * math.Sin(angle)}
}
