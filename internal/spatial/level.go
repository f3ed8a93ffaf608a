package spatial

import "easy-ai/server/internal/geom"

// HeightFunc returns the terrain height at (x, z).
type HeightFunc func(x, z float64) float64

// Level is a height field with box obstacles standing on it.
type Level struct {
	Terrain   HeightFunc
	Obstacles []Box
}

// Ground scans the column at (x, z). The column is closed when an obstacle
// footprint covers it above the terrain, or when the terrain lies outside
// [floor, ceiling].
func (l Level) Ground(x, z, floor, ceiling float64) (float64, bool) {
	height := 0.0
	if l.Terrain != nil {
		height = l.Terrain(x, z)
	}
	if height < floor || height > ceiling {
		return 0, false
	}
	for _, box := range l.Obstacles {
		if !box.ContainsPlanar(x, z) {
			continue
		}
		if box.Max[1] >= height && box.Min[1] <= ceiling {
			return 0, false
		}
	}
	return height, true
}

// Oracle returns a BoxOracle over the level obstacles.
func (l Level) Oracle() *BoxOracle {
	return NewBoxOracle(l.Obstacles)
}

// Snap places p on the terrain surface.
func (l Level) Snap(p geom.Vec3) geom.Vec3 {
	if l.Terrain == nil {
		return geom.V(p[0], 0, p[2])
	}
	return geom.V(p[0], l.Terrain(p[0], p[2]), p[2])
}
