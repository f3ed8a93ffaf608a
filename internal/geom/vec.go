// Package geom holds the vector helpers shared by navigation and steering.
//
// Positions are three dimensional (Y up). Steering operates on the XZ plane,
// represented as mgl64.Vec2 where X maps to X and Y maps to Z.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a world position. It is comparable and safe to use as a map key.
type Vec3 = mgl64.Vec3

// Vec2 is a planar (XZ) vector.
type Vec2 = mgl64.Vec2

// Epsilon is the tolerance used for positional equality.
const Epsilon = 1e-6

// V builds a world position.
func V(x, y, z float64) Vec3 {
	return Vec3{x, y, z}
}

// Planar drops the vertical component.
func Planar(v Vec3) Vec2 {
	return Vec2{v[0], v[2]}
}

// Lift turns a planar vector back into a world position at height y.
func Lift(p Vec2, y float64) Vec3 {
	return Vec3{p[0], y, p[1]}
}

func Distance(a, b Vec3) float64 {
	return a.Sub(b).Len()
}

// PlanarDistance ignores height differences.
func PlanarDistance(a, b Vec3) float64 {
	return math.Hypot(a[0]-b[0], a[2]-b[2])
}

// Near reports whether two positions are within Epsilon of each other.
func Near(a, b Vec3) bool {
	return Distance(a, b) <= Epsilon
}

// Normalize returns the unit vector of v, or the zero vector when v has no length.
func Normalize(v Vec2) Vec2 {
	l := v.Len()
	if l <= Epsilon {
		return Vec2{}
	}
	return v.Mul(1 / l)
}

// ClampLength shortens v so its magnitude does not exceed max.
func ClampLength(v Vec2, max float64) Vec2 {
	if max <= 0 {
		return Vec2{}
	}
	l := v.Len()
	if l <= max {
		return v
	}
	return v.Mul(max / l)
}

// Lerp moves a toward b by t, clamped to [0, 1].
func Lerp(a, b Vec2, t float64) Vec2 {
	t = mgl64.Clamp(t, 0, 1)
	return a.Add(b.Sub(a).Mul(t))
}

// Yaw returns the heading (radians about Y, 0 facing +Z) of a planar direction.
func Yaw(dir Vec2) float64 {
	return math.Atan2(dir[0], dir[1])
}

// RotateTowards turns current toward target by at most maxStep radians along
// the shorter arc. A maxStep <= 0 snaps to target.
func RotateTowards(current, target, maxStep float64) float64 {
	delta := WrapAngle(target - current)
	if maxStep <= 0 || math.Abs(delta) <= maxStep {
		return WrapAngle(target)
	}
	if delta < 0 {
		return WrapAngle(current - maxStep)
	}
	return WrapAngle(current + maxStep)
}

// WrapAngle maps an angle into (-pi, pi].
func WrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
