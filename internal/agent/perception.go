package agent

import "reflect"

// Sensor produces a percept for its agent.
type Sensor interface {
	Sense(a *Agent) any
}

// Actuator tries to carry out an action. It returns true once the action is
// complete; false keeps the action queued for the next tick.
type Actuator interface {
	Act(a *Agent, action any) bool
}

// PerformanceMeasure scores how well an agent is doing.
type PerformanceMeasure interface {
	Performance(a *Agent) float64
}

// SensorFunc adapts a function into a Sensor.
type SensorFunc func(a *Agent) any

func (f SensorFunc) Sense(a *Agent) any { return f(a) }

// ActuatorFunc adapts a function into an Actuator.
type ActuatorFunc func(a *Agent, action any) bool

func (f ActuatorFunc) Act(a *Agent, action any) bool { return f(a, action) }

// PerformanceFunc adapts a function into a PerformanceMeasure.
type PerformanceFunc func(a *Agent) float64

func (f PerformanceFunc) Performance(a *Agent) float64 { return f(a) }

// Sense returns the first percept of type R produced by a sensor of type K.
func Sense[K Sensor, R any](a *Agent) (R, bool) {
	for _, s := range a.sensors {
		if _, ok := s.(K); !ok {
			continue
		}
		if r, ok := s.Sense(a).(R); ok {
			return r, true
		}
	}
	var zero R
	return zero, false
}

// SenseAll returns every percept of type R produced by sensors of type K.
func SenseAll[K Sensor, R any](a *Agent) []R {
	var out []R
	for _, s := range a.sensors {
		if _, ok := s.(K); !ok {
			continue
		}
		if r, ok := s.Sense(a).(R); ok {
			out = append(out, r)
		}
	}
	return out
}

// SenseEverything runs every sensor and returns the non-nil percepts.
func (a *Agent) SenseEverything() []any {
	var out []any
	for _, s := range a.sensors {
		if p := s.Sense(a); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Act offers action to the actuators. When one completes it any queued
// action of the same type is dropped. Otherwise the action replaces a queued
// action of the same type, or is appended, and is retried every tick.
func (a *Agent) Act(action any) {
	if action == nil {
		return
	}
	kind := reflect.TypeOf(action)
	if a.tryActuators(action) {
		a.removeActionType(kind)
		return
	}
	for i, queued := range a.actions {
		if reflect.TypeOf(queued) == kind {
			a.actions[i] = action
			return
		}
	}
	a.actions = append(a.actions, action)
}

func (a *Agent) tryActuators(action any) bool {
	for _, actuator := range a.actuators {
		if actuator.Act(a, action) {
			return true
		}
	}
	return false
}

// actIncomplete retries queued actions and drops the ones that complete.
func (a *Agent) actIncomplete() {
	queued := a.actions
	a.actions = nil
	for _, action := range queued {
		if !a.tryActuators(action) {
			a.actions = append(a.actions, action)
		}
	}
}

func (a *Agent) removeActionType(kind reflect.Type) {
	for i, queued := range a.actions {
		if reflect.TypeOf(queued) == kind {
			a.actions = append(a.actions[:i], a.actions[i+1:]...)
			return
		}
	}
}

// Actions returns a copy of the queued actions.
func (a *Agent) Actions() []any {
	return append([]any(nil), a.actions...)
}

// ClearActions drops every queued action.
func (a *Agent) ClearActions() {
	a.actions = nil
}

// HasAction reports whether an action of type T is queued.
func HasAction[T any](a *Agent) bool {
	for _, queued := range a.actions {
		if _, ok := queued.(T); ok {
			return true
		}
	}
	return false
}

// RemoveAction drops the queued action of type T, if any.
func RemoveAction[T any](a *Agent) {
	for i, queued := range a.actions {
		if _, ok := queued.(T); ok {
			a.actions = append(a.actions[:i], a.actions[i+1:]...)
			return
		}
	}
}
