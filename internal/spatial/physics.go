package spatial

import (
	"github.com/bytearena/box2d"

	"easy-ai/server/internal/geom"
)

// PhysicsOracle answers visibility queries by ray casting against a top-down
// box2d world. Obstacles are extruded to infinite height, so heights are
// ignored.
const minEdge = 0.01

type PhysicsOracle struct {
	world *box2d.B2World
}

func NewPhysicsOracle(boxes []Box) *PhysicsOracle {
	world := box2d.MakeB2World(box2d.MakeB2Vec2(0.0, 0.0))
	for _, b := range boxes {
		// CreateLoop panics on coincident vertices.
		if b.Max[0]-b.Min[0] < minEdge || b.Max[2]-b.Min[2] < minEdge {
			continue
		}
		bodydef := box2d.MakeB2BodyDef()
		bodydef.Type = box2d.B2BodyType.B2_staticBody
		body := world.CreateBody(&bodydef)

		vertices := make([]box2d.B2Vec2, 4)
		vertices[0].Set(b.Min[0], b.Min[2])
		vertices[1].Set(b.Max[0], b.Min[2])
		vertices[2].Set(b.Max[0], b.Max[2])
		vertices[3].Set(b.Min[0], b.Max[2])

		shape := box2d.MakeB2ChainShape()
		shape.CreateLoop(vertices, len(vertices))
		body.CreateFixture(&shape, 0.0)
		body.SetUserData(b.ID)
	}
	return &PhysicsOracle{world: &world}
}

func (o *PhysicsOracle) HasLineOfSight(a, b geom.Vec3) bool {
	if o == nil || o.world == nil {
		return true
	}
	return o.ray(a[0], a[2], b[0], b[2])
}

// SweepCapsule casts three parallel rays: the centre line and one on each
// side offset by the radius.
func (o *PhysicsOracle) SweepCapsule(a, b geom.Vec3, radius float64) bool {
	if !o.HasLineOfSight(a, b) {
		return false
	}
	if radius <= 0 {
		return true
	}
	dir := geom.Normalize(geom.Planar(b.Sub(a)))
	if dir == (geom.Vec2{}) {
		return true
	}
	side := geom.Vec2{-dir[1], dir[0]}.Mul(radius)
	for _, offset := range []geom.Vec2{side, side.Mul(-1)} {
		if !o.ray(a[0]+offset[0], a[2]+offset[1], b[0]+offset[0], b[2]+offset[1]) {
			return false
		}
	}
	return true
}

func (o *PhysicsOracle) ray(x1, z1, x2, z2 float64) bool {
	// box2d asserts on zero length rays.
	if (x1-x2)*(x1-x2)+(z1-z2)*(z1-z2) <= geom.Epsilon*geom.Epsilon {
		return true
	}
	occluded := false
	o.world.RayCast(
		func(fixture *box2d.B2Fixture, point box2d.B2Vec2, normal box2d.B2Vec2, fraction float64) float64 {
			occluded = true
			return 0.0
		},
		box2d.MakeB2Vec2(x1, z1),
		box2d.MakeB2Vec2(x2, z2),
	)
	return !occluded
}
