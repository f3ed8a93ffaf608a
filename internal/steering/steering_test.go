package steering

import (
	"math"
	"testing"

	"easy-ai/server/internal/geom"
)

type mover struct{ pos geom.Vec3 }

func (m *mover) Position() geom.Vec3 { return m.pos }

type vanishing struct {
	mover
	gone bool
}

func (v *vanishing) Gone() bool { return v.gone }

func approx(a, b geom.Vec2) bool {
	return math.Abs(a[0]-b[0]) < 1e-9 && math.Abs(a[1]-b[1]) < 1e-9
}

func TestSeekAndFlee(t *testing.T) {
	pos, vel := geom.Vec2{0, 0}, geom.Vec2{1, 0}
	if got := Move(Seek, pos, vel, geom.Vec2{0, 10}, geom.Vec2{}, 2, 0.1); !approx(got, geom.Vec2{-1, 2}) {
		t.Fatalf("unexpected seek vector %v", got)
	}
	if got := Move(Flee, pos, vel, geom.Vec2{0, 10}, geom.Vec2{}, 2, 0.1); !approx(got, geom.Vec2{-1, -2}) {
		t.Fatalf("unexpected flee vector %v", got)
	}
}

func TestPursueLeadsMovingTarget(t *testing.T) {
	pos := geom.Vec2{0, 0}
	current, last := geom.Vec2{10, 0}, geom.Vec2{10, -1}
	// Target moves +1 z per 0.5 s (2 u/s); at speed 5 covering 10 units takes 2 s.
	got := Move(Pursue, pos, geom.Vec2{}, current, last, 5, 0.5)
	want := SeekTo(pos, geom.Vec2{}, geom.Vec2{10, 4}, 5)
	if !approx(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	evade := Move(Evade, pos, geom.Vec2{}, current, last, 5, 0.5)
	if !approx(evade, want.Mul(-1)) {
		t.Fatalf("expected evade to mirror pursue, got %v", evade)
	}
}

func TestPursueWithoutTimeFallsBackToSeek(t *testing.T) {
	got := Move(Pursue, geom.Vec2{}, geom.Vec2{}, geom.Vec2{3, 4}, geom.Vec2{0, 0}, 1, 0)
	if !approx(got, geom.Vec2{0.6, 0.8}) {
		t.Fatalf("unexpected vector %v", got)
	}
}

func TestComplete(t *testing.T) {
	tol := DefaultTolerances()
	if !tol.Complete(Seek, geom.Vec2{0, 0}, geom.Vec2{0.05, 0}) {
		t.Fatalf("seek within tolerance should complete")
	}
	if tol.Complete(Pursue, geom.Vec2{0, 0}, geom.Vec2{1, 0}) {
		t.Fatalf("pursue outside tolerance should not complete")
	}
	if !tol.Complete(Flee, geom.Vec2{0, 0}, geom.Vec2{10, 0}) {
		t.Fatalf("flee at the acceptable distance should complete")
	}
	never := Tolerances{SeekAcceptable: -1, FleeAcceptable: -1}
	if never.Complete(Seek, geom.Vec2{}, geom.Vec2{}) || never.Complete(Evade, geom.Vec2{}, geom.Vec2{100, 0}) {
		t.Fatalf("negative tolerances never complete")
	}
}

func TestTowardDowngradesPredictiveBehaviours(t *testing.T) {
	if r := Toward(Pursue, geom.Vec2{1, 1}); r.Behavior != Seek {
		t.Fatalf("expected seek, got %s", r.Behavior)
	}
	if r := Toward(Evade, geom.Vec2{1, 1}); r.Behavior != Flee {
		t.Fatalf("expected flee, got %s", r.Behavior)
	}
}

func TestFollowTracksTargetAndExpires(t *testing.T) {
	target := &vanishing{mover: mover{pos: geom.V(0, 0, 5)}}
	r := Follow(Pursue, target)
	r.Step(geom.Vec2{}, geom.Vec2{}, 1, 0.1)
	target.pos = geom.V(1, 0, 5)
	if r.Last() != (geom.Vec2{0, 5}) || r.Current() != (geom.Vec2{1, 5}) {
		t.Fatalf("unexpected positions last=%v current=%v", r.Last(), r.Current())
	}
	if !r.Valid() {
		t.Fatalf("request should be valid")
	}
	target.gone = true
	if r.Valid() {
		t.Fatalf("request should expire with its target")
	}
}
