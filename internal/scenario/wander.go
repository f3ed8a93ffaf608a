package scenario

import (
	"math/rand"

	"easy-ai/server/internal/agent"
	"easy-ai/server/internal/geom"
)

// Wanderer walks between randomly chosen goals using the navigation table.
type Wanderer struct {
	Goals   []geom.Vec3
	Rand    *rand.Rand
	Reached int
	current geom.Vec3
	active  bool
}

func (w *Wanderer) pick() (geom.Vec3, bool) {
	if len(w.Goals) == 0 {
		return geom.Vec3{}, false
	}
	n := len(w.Goals)
	var i int
	if w.Rand != nil {
		i = w.Rand.Intn(n)
	} else {
		i = rand.Intn(n)
	}
	return w.Goals[i], true
}

// arriveRadius is how close a wanderer must get before picking a new goal.
const arriveRadius = 0.5

// WanderMind picks a new goal whenever the previous walk has finished.
type WanderMind struct{ agent.BaseState }

func (*WanderMind) Execute(a *agent.Agent) {
	w, ok := agent.ComponentOf[*Wanderer](a)
	if !ok {
		return
	}
	if dest, walking := a.Destination(); walking {
		if geom.PlanarDistance(dest, a.Position()) > arriveRadius {
			return
		}
		a.StopNavigating()
	}
	if w.active {
		w.active = false
		w.Reached++
		a.Logf("Reached (%.1f, %.1f).", w.current[0], w.current[2])
	}
	goal, ok := w.pick()
	if !ok || geom.PlanarDistance(goal, a.Position()) <= arriveRadius {
		return
	}
	w.current, w.active = goal, true
	a.Navigate(goal)
}

// NewWanderer builds an agent that tours goals.
func NewWanderer(name string, position geom.Vec3, goals []geom.Vec3, rng *rand.Rand, integration agent.Integration) *agent.Agent {
	w := &Wanderer{Goals: goals, Rand: rng}
	return agent.New(agent.Options{
		Name:             name,
		Position:         position,
		MoveSpeed:        5,
		MoveAcceleration: 20,
		LookSpeed:        6,
		Integration:      integration,
		Mind:             &WanderMind{},
		Measure:          agent.PerformanceFunc(func(*agent.Agent) float64 { return float64(w.Reached) }),
		Components:       []any{w},
	})
}
