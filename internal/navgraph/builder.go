package navgraph

import (
	"fmt"

	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/spatial"
)

// Builder turns level geometry into a navigation graph.
type Builder struct {
	Ground    spatial.Sampler
	Oracle    spatial.Oracle
	Generator Generator
	// Radius of the agents that will walk the graph. Zero uses line of sight.
	Radius float64
	// DumpDir, when set, receives one text grid per area.
	DumpDir string
	// DumpName prefixes dump files. Areas after the first get an index suffix.
	DumpName string
}

// BuildReport summarises a Build.
type BuildReport struct {
	Areas       int
	Nodes       int
	Connections int
	Pruned      int
	Dumps       []string
	DumpErrors  []error
}

// Build samples each area, runs the generator, connects every node pair
// inside an area that has a clear straight walk, adds the free nodes
// (connected to anything they can reach) and finally prunes isolated nodes.
func (b Builder) Build(areas []AreaConfig, free []geom.Vec3) (*Graph, BuildReport) {
	g := New()
	report := BuildReport{Areas: len(areas)}
	gen := b.Generator
	if gen == nil {
		gen = CornerGenerator{}
	}

	for i, cfg := range areas {
		area := NewNodeArea(cfg, b.Ground)
		gen.Generate(area)
		nodes := area.Nodes()
		for _, n := range nodes {
			g.AddNode(n)
		}
		b.connectAll(g, nodes, nodes)

		if b.DumpDir != "" {
			path, err := area.WriteDump(b.DumpDir, b.dumpName(i, len(areas), cfg))
			if err != nil {
				report.DumpErrors = append(report.DumpErrors, err)
			} else {
				report.Dumps = append(report.Dumps, path)
			}
		}
	}

	for _, n := range free {
		existing := g.Nodes()
		g.AddNode(n)
		b.connectAll(g, []geom.Vec3{n}, existing)
	}

	report.Pruned = g.Prune()
	report.Nodes = g.Len()
	report.Connections = len(g.connections)
	return g, report
}

func (b Builder) connectAll(g *Graph, from, to []geom.Vec3) {
	for _, a := range from {
		for _, c := range to {
			if a == c || g.Connected(a, c) {
				continue
			}
			if !spatial.Clear(b.Oracle, a, c, b.Radius) {
				continue
			}
			g.Connect(a, c)
		}
	}
}

func (b Builder) dumpName(i, total int, cfg AreaConfig) string {
	name := b.DumpName
	if name == "" {
		name = "level"
	}
	if cfg.Name != "" {
		return fmt.Sprintf("%s_%s", name, cfg.Name)
	}
	if total > 1 {
		return fmt.Sprintf("%s_%d", name, i)
	}
	return name
}
