package spatial

import (
	"math"

	"easy-ai/server/internal/geom"
)

// Box is an axis aligned obstacle.
type Box struct {
	ID  string    `json:"id,omitempty" yaml:"id,omitempty"`
	Min geom.Vec3 `json:"min" yaml:"min"`
	Max geom.Vec3 `json:"max" yaml:"max"`
}

// NewBox normalizes two opposite corners into a Box.
func NewBox(id string, a, b geom.Vec3) Box {
	return Box{
		ID:  id,
		Min: geom.V(math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])),
		Max: geom.V(math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])),
	}
}

// Inflate grows the box by pad on every side.
func (b Box) Inflate(pad float64) Box {
	p := geom.V(pad, pad, pad)
	return Box{ID: b.ID, Min: b.Min.Sub(p), Max: b.Max.Add(p)}
}

// ContainsPlanar reports whether (x, z) lies within the box footprint.
func (b Box) ContainsPlanar(x, z float64) bool {
	return x >= b.Min[0] && x <= b.Max[0] && z >= b.Min[2] && z <= b.Max[2]
}

// Contains reports whether p lies inside the box.
func (b Box) Contains(p geom.Vec3) bool {
	return b.ContainsPlanar(p[0], p[2]) && p[1] >= b.Min[1] && p[1] <= b.Max[1]
}

// IntersectsSegment runs a slab test of the segment a-b against the box.
func (b Box) IntersectsSegment(a, c geom.Vec3) bool {
	dir := c.Sub(a)
	tMin, tMax := 0.0, 1.0
	for axis := 0; axis < 3; axis++ {
		if math.Abs(dir[axis]) < 1e-12 {
			if a[axis] < b.Min[axis] || a[axis] > b.Max[axis] {
				return false
			}
			continue
		}
		inv := 1 / dir[axis]
		t1 := (b.Min[axis] - a[axis]) * inv
		t2 := (b.Max[axis] - a[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math.Max(tMin, t1)
		tMax = math.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}
	return true
}

// BoxOracle answers visibility queries against a fixed set of boxes.
type BoxOracle struct {
	boxes []Box
}

func NewBoxOracle(boxes []Box) *BoxOracle {
	copied := make([]Box, len(boxes))
	copy(copied, boxes)
	return &BoxOracle{boxes: copied}
}

func (o *BoxOracle) Boxes() []Box {
	if o == nil {
		return nil
	}
	copied := make([]Box, len(o.boxes))
	copy(copied, o.boxes)
	return copied
}

func (o *BoxOracle) HasLineOfSight(a, b geom.Vec3) bool {
	return o.SweepCapsule(a, b, 0)
}

// SweepCapsule treats the capsule as the segment tested against boxes
// inflated by the radius.
func (o *BoxOracle) SweepCapsule(a, b geom.Vec3, radius float64) bool {
	if o == nil {
		return true
	}
	for _, box := range o.boxes {
		if radius > 0 {
			box = box.Inflate(radius)
		}
		if box.IntersectsSegment(a, b) {
			return false
		}
	}
	return true
}
