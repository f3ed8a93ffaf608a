package agent

import (
	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/spatial"
	"easy-ai/server/internal/steering"
)

// Navigate plans a path to goal. It returns false when the agent is already
// heading to goal.
func (a *Agent) Navigate(goal geom.Vec3) bool {
	if dest, ok := a.Destination(); ok && dest == goal {
		return false
	}
	a.path = a.host.Navigation().LookupPath(a.position, goal)
	return true
}

// StopNavigating drops the current path.
func (a *Agent) StopNavigating() { a.path = nil }

// Path returns a copy of the remaining waypoints.
func (a *Agent) Path() []geom.Vec3 {
	return append([]geom.Vec3(nil), a.path...)
}

// Destination is the last waypoint of the current path.
func (a *Agent) Destination() (geom.Vec3, bool) {
	if len(a.path) == 0 {
		return geom.Vec3{}, false
	}
	return a.path[len(a.path)-1], true
}

// Move replaces every steering request with one against a fixed point.
func (a *Agent) Move(point geom.Vec3, b steering.Behavior) {
	a.moves = nil
	a.AddMove(point, b)
}

// Follow replaces every steering request with one against a moving target.
func (a *Agent) Follow(target steering.Target, b steering.Behavior) {
	a.moves = nil
	a.AddFollow(target, b)
}

// AddMove adds a request against a fixed point unless an identical request
// exists or it is already satisfied. Other requests for the same point are
// replaced.
func (a *Agent) AddMove(point geom.Vec3, b steering.Behavior) {
	a.addRequest(steering.Toward(b, geom.Planar(point)))
}

// AddFollow adds a request against a moving target.
func (a *Agent) AddFollow(target steering.Target, b steering.Behavior) {
	if target == nil {
		return
	}
	a.addRequest(steering.Follow(b, target))
}

func (a *Agent) addRequest(r *steering.Request) {
	for _, m := range a.moves {
		if m.Same(r) {
			return
		}
	}
	tol := a.host.Settings().Tolerances
	if tol.Complete(r.Behavior, geom.Planar(a.position), r.Current()) {
		return
	}
	kept := a.moves[:0]
	for _, m := range a.moves {
		if sameTarget(m, r) {
			continue
		}
		kept = append(kept, m)
	}
	a.moves = append(kept, r)
}

func sameTarget(a, b *steering.Request) bool {
	if a.Target() != nil || b.Target() != nil {
		return a.Target() == b.Target()
	}
	return a.Current() == b.Current()
}

// StopMoving drops every steering request.
func (a *Agent) StopMoving() { a.moves = nil }

// Moves returns the active steering requests.
func (a *Agent) Moves() []*steering.Request {
	return append([]*steering.Request(nil), a.moves...)
}

// ForgetTarget drops requests following target and reports how many went.
func (a *Agent) ForgetTarget(target steering.Target) int {
	kept := a.moves[:0]
	dropped := 0
	for _, m := range a.moves {
		if m.Target() != nil && m.Target() == target {
			dropped++
			continue
		}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(a.moves); i++ {
		a.moves[i] = nil
	}
	a.moves = kept
	return dropped
}

// Look resumes looking at the current look target.
func (a *Agent) Look() {
	a.looking = a.lookTarget != a.position
}

// LookAt turns the agent toward p until StopLooking.
func (a *Agent) LookAt(p geom.Vec3) {
	a.lookTarget = p
	a.Look()
}

// LookAtTarget looks at the target's current position. A nil target stops looking.
func (a *Agent) LookAtTarget(t steering.Target) {
	if t == nil {
		a.StopLooking()
		return
	}
	a.LookAt(t.Position())
}

// StopLooking makes the agent face its direction of travel again.
func (a *Agent) StopLooking() { a.looking = false }

// Looking reports whether a look target is active.
func (a *Agent) Looking() bool { return a.looking }

// CalculateMoveVelocity updates the planar velocity from the current path,
// or from the steering requests when there is no path. Without any orders
// the velocity decays toward zero and snaps to rest below the rest
// threshold. The result never exceeds the move speed.
func (a *Agent) CalculateMoveVelocity(dt float64) {
	settings := a.host.Settings()
	nav := a.host.Navigation()
	pos := geom.Planar(a.position)

	snap := a.moveAcceleration <= 0
	speed := a.moveAcceleration
	if snap {
		speed = a.moveSpeed
	}

	var movement geom.Vec2
	contributors := 0
	if len(a.path) > 0 {
		a.prunePath(nav, settings.Tolerances.SeekAcceptable)
		if len(a.path) > 0 {
			target := geom.Planar(a.path[0])
			movement = steering.SeekTo(pos, a.velocity, target, speed)
			contributors = 1
		}
	} else {
		kept := a.moves[:0]
		for _, m := range a.moves {
			if !m.Valid() || settings.Tolerances.Complete(m.Behavior, pos, m.Current()) {
				continue
			}
			movement = movement.Add(m.Step(pos, a.velocity, speed, dt))
			contributors++
			kept = append(kept, m)
		}
		for i := len(kept); i < len(a.moves); i++ {
			a.moves[i] = nil
		}
		a.moves = kept
	}

	if contributors == 0 {
		t := 1.0
		if !snap {
			t = a.moveAcceleration * dt
		}
		a.velocity = geom.Lerp(a.velocity, geom.Vec2{}, t)
		if a.velocity.Len() <= settings.RestVelocity {
			a.velocity = geom.Vec2{}
		}
		return
	}

	if snap {
		a.velocity = a.velocity.Add(movement.Mul(1 / float64(contributors)))
	} else {
		a.velocity = a.velocity.Add(movement.Mul(dt))
	}
	a.velocity = geom.ClampLength(a.velocity, a.moveSpeed)
}

// prunePath skips waypoints the agent can already walk past and drops the
// ones it has reached.
func (a *Agent) prunePath(nav Navigation, reached float64) {
	for len(a.path) >= 2 && spatial.Clear(nav.Oracle(), a.position, a.path[1], nav.Radius()) {
		a.path = a.path[1:]
	}
	for len(a.path) > 0 && reached >= 0 && geom.PlanarDistance(a.position, a.path[0]) <= reached {
		a.path = a.path[1:]
	}
	if len(a.path) == 0 {
		a.path = nil
	}
}

// Integrate applies the velocity for dt seconds. Character agents also fall
// under gravity until they reach the ground.
func (a *Agent) Integrate(dt float64) {
	if dt <= 0 {
		return
	}
	next := a.position.Add(geom.Lift(a.velocity.Mul(dt), 0))
	if a.integration == Character {
		settings := a.host.Settings()
		ground := a.position[1]
		if settings.Ground != nil {
			ground = settings.Ground(next[0], next[2])
		}
		a.verticalVelocity += settings.Gravity * dt
		next[1] = a.position[1] + a.verticalVelocity*dt
		if next[1] <= ground {
			next[1] = ground
			a.verticalVelocity = 0
		}
	}
	a.position = next
}

// LookCalculations turns the agent toward its look target, or toward its
// direction of travel, at the configured look speed.
func (a *Agent) LookCalculations(dt float64) {
	if a.lookSpeed > 0 && dt <= 0 {
		return
	}
	var dir geom.Vec2
	if a.looking {
		dir = geom.Planar(a.lookTarget.Sub(a.position))
	} else {
		if !a.Moving() {
			return
		}
		dir = a.velocity
	}
	if dir.Len() <= geom.Epsilon {
		return
	}
	a.yaw = geom.RotateTowards(a.yaw, geom.Yaw(dir), a.lookSpeed*dt)
}
