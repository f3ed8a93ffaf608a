package navgraph

// Generator places nodes inside a sampled NodeArea.
type Generator interface {
	Generate(area *NodeArea)
}

// GeneratorFunc adapts a function into a Generator.
type GeneratorFunc func(area *NodeArea)

func (f GeneratorFunc) Generate(area *NodeArea) {
	if f != nil {
		f(area)
	}
}

// GridGenerator places a node on every open cell whose indices are multiples
// of Spacing.
type GridGenerator struct {
	Spacing int
}

func (g GridGenerator) Generate(area *NodeArea) {
	spacing := g.Spacing
	if spacing < 1 {
		spacing = 1
	}
	for x := 0; x < area.RangeX(); x += spacing {
		for z := 0; z < area.RangeZ(); z += spacing {
			if area.IsOpen(x, z) {
				area.AddNode(x, z)
			}
		}
	}
}

// CornerGenerator places nodes diagonally out from the convex corners of
// closed regions, Steps cells away from the corner.
type CornerGenerator struct {
	Steps int
}

var diagonals = [...][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}

func (g CornerGenerator) Generate(area *NodeArea) {
	steps := g.Steps
	if steps < 1 {
		steps = 3
	}
	for x := 0; x < area.RangeX(); x++ {
		for z := 0; z < area.RangeZ(); z++ {
			if area.IsOpen(x, z) {
				continue
			}
			for _, d := range diagonals {
				if !area.IsOpen(x+d[0], z) || !area.IsOpen(x, z+d[1]) || !area.IsOpen(x+d[0], z+d[1]) {
					continue
				}
				nx, nz := x+d[0]*steps, z+d[1]*steps
				if clearRun(area, x, z, d, steps) {
					area.AddNode(nx, nz)
				}
			}
		}
	}
}

// clearRun reports whether every cell on the diagonal from the corner out to
// the node position is open.
func clearRun(area *NodeArea, x, z int, d [2]int, steps int) bool {
	for i := 1; i <= steps; i++ {
		if !area.IsOpen(x+d[0]*i, z+d[1]*i) {
			return false
		}
	}
	return true
}
