package pathfind

import (
	"math"

	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/spatial"
)

// Simplifier removes waypoints that can be skipped with a straight walk.
type Simplifier struct {
	Oracle spatial.Oracle
	// Radius of the walking agent; zero checks plain line of sight.
	Radius float64
	// MaxHeightDelta stops pulling across points whose heights differ by
	// more than this. Zero or less means no limit.
	MaxHeightDelta float64
}

// Pull runs one forward pass. Whenever path[i] can see path[j] for some
// j > i+1, every point strictly between them is removed and the scan
// continues from path[i]. The first and last points are never removed. The
// input slice is reused.
func (s Simplifier) Pull(path []geom.Vec3) []geom.Vec3 {
	for i := 0; i < len(path)-2; i++ {
		for j := i + 2; j < len(path); j++ {
			if !s.canSkip(path[i], path[j]) {
				continue
			}
			path = append(path[:i+1], path[j:]...)
			j = i + 1
		}
	}
	return path
}

// Simplify pulls the path forward, then backward, and returns it in its
// original direction.
func (s Simplifier) Simplify(path []geom.Vec3) []geom.Vec3 {
	if len(path) < 3 {
		return path
	}
	path = s.Pull(path)
	reverse(path)
	path = s.Pull(path)
	reverse(path)
	return path
}

func (s Simplifier) canSkip(a, b geom.Vec3) bool {
	if s.MaxHeightDelta > 0 && math.Abs(a[1]-b[1]) > s.MaxHeightDelta {
		return false
	}
	return spatial.Clear(s.Oracle, a, b, s.Radius)
}

func reverse(path []geom.Vec3) {
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
}
