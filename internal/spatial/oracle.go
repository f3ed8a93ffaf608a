// Package spatial answers geometric questions about a level: whether a
// straight walk between two points is obstructed and where the walkable
// ground is.
package spatial

import "easy-ai/server/internal/geom"

// Oracle reports whether straight-line movement between two points is clear.
type Oracle interface {
	// HasLineOfSight reports whether the segment a-b is unobstructed.
	HasLineOfSight(a, b geom.Vec3) bool
	// SweepCapsule reports whether a capsule of the given radius can be swept
	// from a to b without touching an obstacle.
	SweepCapsule(a, b geom.Vec3, radius float64) bool
}

// OracleFunc adapts a function into an Oracle. The function receives the
// sweep radius, which is zero for plain line of sight checks.
type OracleFunc func(a, b geom.Vec3, radius float64) bool

func (f OracleFunc) HasLineOfSight(a, b geom.Vec3) bool {
	if f == nil {
		return true
	}
	return f(a, b, 0)
}

func (f OracleFunc) SweepCapsule(a, b geom.Vec3, radius float64) bool {
	if f == nil {
		return true
	}
	return f(a, b, radius)
}

// Open is an oracle for a level without obstacles.
var Open Oracle = OracleFunc(nil)

// Clear reports whether an agent of the given radius can walk straight from a
// to b. A radius <= 0 uses line of sight; otherwise both endpoints are lifted
// by the radius and a capsule is swept so the body clears the ground.
func Clear(o Oracle, a, b geom.Vec3, radius float64) bool {
	if o == nil {
		return true
	}
	if radius <= 0 {
		return o.HasLineOfSight(a, b)
	}
	lift := geom.V(0, radius, 0)
	return o.SweepCapsule(a.Add(lift), b.Add(lift), radius)
}

// Sampler locates walkable ground inside a vertical column.
type Sampler interface {
	// Ground returns the walkable height at (x, z) when the first surface
	// found scanning down from ceiling to floor is walkable ground.
	Ground(x, z, floor, ceiling float64) (float64, bool)
}
