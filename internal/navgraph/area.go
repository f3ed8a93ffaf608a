package navgraph

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/spatial"
)

const (
	cellOpen   = ' '
	cellClosed = '#'
	cellNode   = '*'
)

// AreaConfig describes a rectangular region to scatter nodes over. Corners
// are whole world units on the XZ plane.
type AreaConfig struct {
	Name         string  `json:"name,omitempty" yaml:"name,omitempty"`
	Corner1      [2]int  `json:"corner1" yaml:"corner1"`
	Corner2      [2]int  `json:"corner2" yaml:"corner2"`
	Floor        float64 `json:"floor" yaml:"floor"`
	Ceiling      float64 `json:"ceiling" yaml:"ceiling"`
	NodesPerStep int     `json:"nodesPerStep" yaml:"nodesPerStep"`
}

// Normalized orders the corners and floor/ceiling and fills defaults.
func (c AreaConfig) Normalized() AreaConfig {
	if c.Corner2[0] > c.Corner1[0] {
		c.Corner1[0], c.Corner2[0] = c.Corner2[0], c.Corner1[0]
	}
	if c.Corner2[1] > c.Corner1[1] {
		c.Corner1[1], c.Corner2[1] = c.Corner2[1], c.Corner1[1]
	}
	if c.Floor > c.Ceiling {
		c.Floor, c.Ceiling = c.Ceiling, c.Floor
	}
	if c.NodesPerStep < 1 {
		c.NodesPerStep = 1
	}
	return c
}

// NodeArea is the sampled occupancy grid of one AreaConfig. Generators mark
// cells as nodes through AddNode.
type NodeArea struct {
	cfg    AreaConfig
	data   [][]byte
	nodes  []geom.Vec3
	ground spatial.Sampler
}

// NewNodeArea samples every cell of the area against the ground sampler.
func NewNodeArea(cfg AreaConfig, ground spatial.Sampler) *NodeArea {
	cfg = cfg.Normalized()
	a := &NodeArea{cfg: cfg, ground: ground}
	a.data = make([][]byte, a.RangeX())
	for x := range a.data {
		row := make([]byte, a.RangeZ())
		for z := range row {
			px, pz := a.planar(x, z)
			row[z] = cellClosed
			if _, ok := a.sample(px, pz); ok {
				row[z] = cellOpen
			}
		}
		a.data[x] = row
	}
	return a
}

func (a *NodeArea) Config() AreaConfig { return a.cfg }

func (a *NodeArea) RangeX() int {
	return (a.cfg.Corner1[0]-a.cfg.Corner2[0])*a.cfg.NodesPerStep + 1
}

func (a *NodeArea) RangeZ() int {
	return (a.cfg.Corner1[1]-a.cfg.Corner2[1])*a.cfg.NodesPerStep + 1
}

func (a *NodeArea) NodesPerStep() int { return a.cfg.NodesPerStep }

func (a *NodeArea) InBounds(x, z int) bool {
	return x >= 0 && z >= 0 && x < a.RangeX() && z < a.RangeZ()
}

// IsOpen reports whether a cell is walkable. Cells outside the area are closed.
func (a *NodeArea) IsOpen(x, z int) bool {
	if !a.InBounds(x, z) {
		return false
	}
	return a.data[x][z] != cellClosed
}

// AddNode marks the cell and records a node at its ground height.
func (a *NodeArea) AddNode(x, z int) {
	if !a.InBounds(x, z) {
		return
	}
	a.data[x][z] = cellNode
	px, pz := a.planar(x, z)
	y, ok := a.sample(px, pz)
	if !ok {
		y = a.cfg.Floor
	}
	v := geom.V(px, y, pz)
	for _, n := range a.nodes {
		if n == v {
			return
		}
	}
	a.nodes = append(a.nodes, v)
}

// Nodes returns the nodes placed in this area in placement order.
func (a *NodeArea) Nodes() []geom.Vec3 {
	copied := make([]geom.Vec3, len(a.nodes))
	copy(copied, a.nodes)
	return copied
}

func (a *NodeArea) planar(x, z int) (float64, float64) {
	step := 1 / float64(a.cfg.NodesPerStep)
	return float64(a.cfg.Corner2[0]) + float64(x)*step, float64(a.cfg.Corner2[1]) + float64(z)*step
}

func (a *NodeArea) sample(x, z float64) (float64, bool) {
	if a.ground == nil {
		return 0, a.cfg.Floor <= 0 && a.cfg.Ceiling >= 0
	}
	return a.ground.Ground(x, z, a.cfg.Floor, a.cfg.Ceiling)
}

// String renders the grid one X row per line using ' ' open, '#' closed and
// '*' node.
func (a *NodeArea) String() string {
	if len(a.data) == 0 {
		return "No data."
	}
	var b strings.Builder
	for x, row := range a.data {
		b.Write(row)
		if x != len(a.data)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// WriteDump writes the grid to dir/<name>.txt.
func (a *NodeArea) WriteDump(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create dump directory")
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.txt", name))
	if err := os.WriteFile(path, []byte(a.String()), 0o644); err != nil {
		return "", errors.Wrapf(err, "write area dump %s", path)
	}
	return path, nil
}
