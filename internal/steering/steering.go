// Package steering computes planar steering vectors for the four classic
// behaviours and tracks active steering requests.
package steering

import (
	"easy-ai/server/internal/geom"
)

// Behavior selects a steering rule.
type Behavior uint8

const (
	Seek Behavior = iota
	Flee
	Pursue
	Evade
)

func (b Behavior) String() string {
	switch b {
	case Seek:
		return "seek"
	case Flee:
		return "flee"
	case Pursue:
		return "pursue"
	case Evade:
		return "evade"
	default:
		return "unknown"
	}
}

// Approaching reports whether the behaviour closes distance to its target.
func (b Behavior) Approaching() bool {
	return b == Seek || b == Pursue
}

// Move returns the steering vector for one behaviour: the desired velocity
// minus the current velocity. targetLast is the target position one tick
// ago and is only used by Pursue and Evade.
func Move(b Behavior, position, velocity, targetCurrent, targetLast geom.Vec2, speed, dt float64) geom.Vec2 {
	switch b {
	case Flee:
		return FleeFrom(position, velocity, targetCurrent, speed)
	case Pursue:
		return SeekTo(position, velocity, predict(position, targetCurrent, targetLast, speed, dt), speed)
	case Evade:
		return FleeFrom(position, velocity, predict(position, targetCurrent, targetLast, speed, dt), speed)
	default:
		return SeekTo(position, velocity, targetCurrent, speed)
	}
}

// SeekTo steers toward target at full speed.
func SeekTo(position, velocity, target geom.Vec2, speed float64) geom.Vec2 {
	return geom.Normalize(target.Sub(position)).Mul(speed).Sub(velocity)
}

// FleeFrom steers directly away from threat at full speed.
func FleeFrom(position, velocity, threat geom.Vec2, speed float64) geom.Vec2 {
	return geom.Normalize(position.Sub(threat)).Mul(speed).Sub(velocity)
}

// predict extrapolates the target along its observed velocity by the time it
// would take to cover the current distance at speed.
func predict(position, current, last geom.Vec2, speed, dt float64) geom.Vec2 {
	if dt <= 0 || speed <= 0 {
		return current
	}
	targetVelocity := current.Sub(last).Mul(1 / dt)
	lookahead := current.Sub(position).Len() / speed
	return current.Add(targetVelocity.Mul(lookahead))
}

// Tolerances decide when a request is complete.
type Tolerances struct {
	// SeekAcceptable is how close approaching behaviours must get. Negative
	// never completes.
	SeekAcceptable float64
	// FleeAcceptable is how far retreating behaviours must get. Negative
	// never completes.
	FleeAcceptable float64
}

// DefaultTolerances mirror the scheduler defaults.
func DefaultTolerances() Tolerances {
	return Tolerances{SeekAcceptable: 0.1, FleeAcceptable: 10}
}

// Complete reports whether a behaviour at position has satisfied its goal
// relative to target.
func (t Tolerances) Complete(b Behavior, position, target geom.Vec2) bool {
	d := position.Sub(target).Len()
	if b.Approaching() {
		return t.SeekAcceptable >= 0 && d <= t.SeekAcceptable
	}
	return t.FleeAcceptable >= 0 && d >= t.FleeAcceptable
}
