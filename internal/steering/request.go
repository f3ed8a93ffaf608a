package steering

import "easy-ai/server/internal/geom"

// Target is a moving object a request can follow.
type Target interface {
	Position() geom.Vec3
}

// Gone is implemented by targets that can disappear.
type Gone interface {
	Gone() bool
}

// Request is one active steering order.
type Request struct {
	Behavior Behavior
	target   Target
	static   geom.Vec2
	last     geom.Vec2
}

// Toward builds a request against a fixed point. Pursue and Evade have
// nothing to predict with a fixed point so they become Seek and Flee.
func Toward(b Behavior, point geom.Vec2) *Request {
	switch b {
	case Pursue:
		b = Seek
	case Evade:
		b = Flee
	}
	return &Request{Behavior: b, static: point, last: point}
}

// Follow builds a request against a moving target.
func Follow(b Behavior, target Target) *Request {
	p := geom.Planar(target.Position())
	return &Request{Behavior: b, target: target, static: p, last: p}
}

// Target returns the tracked object, or nil for fixed points.
func (r *Request) Target() Target { return r.target }

// Valid reports whether the request still has something to steer against.
func (r *Request) Valid() bool {
	if r.target == nil {
		return true
	}
	if g, ok := r.target.(Gone); ok && g.Gone() {
		return false
	}
	return true
}

// Current is the target position now.
func (r *Request) Current() geom.Vec2 {
	if r.target != nil {
		return geom.Planar(r.target.Position())
	}
	return r.static
}

// Last is the target position when the request was last evaluated.
func (r *Request) Last() geom.Vec2 { return r.last }

// Step computes this request's steering vector and remembers the target
// position for the next prediction.
func (r *Request) Step(position, velocity geom.Vec2, speed, dt float64) geom.Vec2 {
	current := r.Current()
	v := Move(r.Behavior, position, velocity, current, r.last, speed, dt)
	r.last = current
	return v
}

// Same reports whether two requests steer the same way against the same target.
func (r *Request) Same(other *Request) bool {
	if other == nil || r.Behavior != other.Behavior {
		return false
	}
	if r.target != nil || other.target != nil {
		return r.target == other.target
	}
	return r.static == other.static
}
