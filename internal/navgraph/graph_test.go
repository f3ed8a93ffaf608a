package navgraph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/spatial"
)

func TestConnectIgnoresDuplicatesAndSelfLoops(t *testing.T) {
	g := New()
	a, b := geom.V(0, 0, 0), geom.V(1, 0, 0)

	assert.True(t, g.Connect(a, b))
	assert.False(t, g.Connect(b, a), "reverse orientation is the same connection")
	assert.False(t, g.Connect(a, a))
	assert.Len(t, g.Connections(), 1)
	assert.Len(t, g.Neighbors(a), 1)
	assert.Len(t, g.Neighbors(b), 1)
	assert.Equal(t, 1.0, g.Neighbors(a)[0].Cost)
}

func TestPruneDropsIsolatedNodes(t *testing.T) {
	g := New()
	g.Connect(geom.V(0, 0, 0), geom.V(1, 0, 0))
	g.AddNode(geom.V(5, 0, 5))

	assert.Equal(t, 1, g.Prune())
	assert.Equal(t, 2, g.Len())
	assert.False(t, g.HasNode(geom.V(5, 0, 5)))
}

func TestNearestPrefersVisibleNode(t *testing.T) {
	g := New()
	hidden := geom.V(1, 0, 0)
	visible := geom.V(-3, 0, 0)
	g.AddNode(hidden)
	g.AddNode(visible)

	wall := spatial.NewBoxOracle([]spatial.Box{spatial.NewBox("wall", geom.V(0.4, -1, -1), geom.V(0.6, 1, 1))})

	got, ok := g.Nearest(geom.V(0, 0, 0), wall, 0, false)
	require.True(t, ok)
	assert.Equal(t, visible, got)

	got, ok = g.Nearest(hidden, wall, 0, false)
	require.True(t, ok)
	assert.Equal(t, hidden, got, "exact match wins")
}

func TestNearestFallsBackWhenNothingVisible(t *testing.T) {
	g := New()
	for i := 0; i < 20; i++ {
		g.AddNode(geom.V(float64(i+1), 0, 0))
	}
	blocked := spatial.OracleFunc(func(a, b geom.Vec3, radius float64) bool { return false })

	got, ok := g.Nearest(geom.V(0, 0, 0), blocked, 0, false)
	require.True(t, ok)
	assert.Equal(t, geom.V(1, 0, 0), got)

	_, ok = g.Nearest(geom.V(0, 0, 0), blocked, 0, true)
	assert.False(t, ok, "strict lookup refuses hidden nodes")

	_, ok = New().Nearest(geom.V(0, 0, 0), nil, 0, false)
	assert.False(t, ok)
}

func TestNearestSearchesBeyondFirstBatch(t *testing.T) {
	g := New()
	for i := 0; i < 30; i++ {
		g.AddNode(geom.V(float64(i+1), 0, 0))
	}
	far := geom.V(25, 0, 0)
	onlyFar := spatial.OracleFunc(func(a, b geom.Vec3, radius float64) bool { return b == far })

	got, ok := g.Nearest(geom.V(0, 0, 0), onlyFar, 0, false)
	require.True(t, ok)
	assert.Equal(t, far, got)
}

func TestNodeAreaSamplesAndDumps(t *testing.T) {
	level := spatial.Level{Obstacles: []spatial.Box{spatial.NewBox("pillar", geom.V(-0.5, 0, -0.5), geom.V(0.5, 2, 0.5))}}
	area := NewNodeArea(AreaConfig{Corner1: [2]int{-2, -2}, Corner2: [2]int{2, 2}, Floor: 10, Ceiling: -1}, level)

	assert.Equal(t, 5, area.RangeX())
	assert.Equal(t, 5, area.RangeZ())
	assert.False(t, area.IsOpen(2, 2), "pillar covers the centre")
	assert.True(t, area.IsOpen(0, 0))
	assert.False(t, area.IsOpen(-1, 0))

	area.AddNode(0, 0)
	area.AddNode(0, 0)
	assert.Equal(t, []geom.Vec3{geom.V(-2, 0, -2)}, area.Nodes())

	rows := strings.Split(area.String(), "\n")
	require.Len(t, rows, 5)
	assert.Equal(t, "*    ", rows[0])
	assert.Equal(t, "  #  ", rows[2])

	dir := t.TempDir()
	path, err := area.WriteDump(dir, "test")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, area.String(), string(data))
	assert.Equal(t, filepath.Join(dir, "test.txt"), path)
}

func TestNodesPerStepRefinesGrid(t *testing.T) {
	area := NewNodeArea(AreaConfig{Corner1: [2]int{1, 1}, Corner2: [2]int{0, 0}, Floor: -1, Ceiling: 1, NodesPerStep: 4}, nil)
	assert.Equal(t, 5, area.RangeX())
	area.AddNode(1, 2)
	assert.Equal(t, []geom.Vec3{geom.V(0.25, 0, 0.5)}, area.Nodes())
}

func TestBuilderConnectsVisibleNodes(t *testing.T) {
	wall := spatial.NewBox("wall", geom.V(-0.5, 0, -4), geom.V(0.5, 3, 2))
	level := spatial.Level{Obstacles: []spatial.Box{wall}}
	builder := Builder{
		Ground:    level,
		Oracle:    level.Oracle(),
		Generator: GridGenerator{Spacing: 2},
		DumpDir:   t.TempDir(),
	}

	g, report := builder.Build([]AreaConfig{{Corner1: [2]int{-4, -4}, Corner2: [2]int{4, 4}, Floor: -1, Ceiling: 5}}, []geom.Vec3{geom.V(0, 0, 3.5)})

	require.Greater(t, g.Len(), 0)
	assert.Equal(t, g.Len(), report.Nodes)
	assert.Len(t, report.Dumps, 1)
	for _, c := range g.Connections() {
		assert.True(t, level.Oracle().HasLineOfSight(c.A, c.B), "connection %v-%v crosses the wall", c.A, c.B)
	}
	for _, n := range g.Nodes() {
		assert.NotEmpty(t, g.Neighbors(n), "node %v survived pruning without connections", n)
	}
	assert.True(t, g.HasNode(geom.V(0, 0, 3.5)), "free node joins the graph")
}

func TestCornerGeneratorHugsObstacle(t *testing.T) {
	level := spatial.Level{Obstacles: []spatial.Box{spatial.NewBox("block", geom.V(-1, 0, -1), geom.V(1, 2, 1))}}
	area := NewNodeArea(AreaConfig{Corner1: [2]int{5, 5}, Corner2: [2]int{-5, -5}, Floor: -1, Ceiling: 5}, level)
	CornerGenerator{Steps: 2}.Generate(area)

	nodes := area.Nodes()
	assert.ElementsMatch(t, []geom.Vec3{
		geom.V(3, 0, 3), geom.V(3, 0, -3), geom.V(-3, 0, 3), geom.V(-3, 0, -3),
	}, nodes)
}
