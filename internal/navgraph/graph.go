// Package navgraph holds the navigation graph: waypoint nodes, the
// undirected connections between them and the spatial index used to find
// the node nearest to an arbitrary position.
package navgraph

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/spatial"
)

// Connection is an undirected edge between two nodes.
type Connection struct {
	A    geom.Vec3 `json:"a" msgpack:"a"`
	B    geom.Vec3 `json:"b" msgpack:"b"`
	Cost float64   `json:"cost" msgpack:"cost"`
}

// Edge is one direction of a Connection as seen from a node.
type Edge struct {
	To   geom.Vec3
	Cost float64
}

const indexTolerance = 1e-4

type indexedNode struct {
	pos   geom.Vec3
	order int
	rect  rtreego.Rect
}

func (n *indexedNode) Bounds() rtreego.Rect {
	return n.rect
}

// Graph is safe for concurrent reads once construction is finished.
type Graph struct {
	nodes       []geom.Vec3
	order       map[geom.Vec3]int
	connections []Connection
	adjacency   map[geom.Vec3][]Edge
	linked      map[[2]geom.Vec3]struct{}
	index       *rtreego.Rtree
}

func New() *Graph {
	return &Graph{
		order:     make(map[geom.Vec3]int),
		adjacency: make(map[geom.Vec3][]Edge),
		linked:    make(map[[2]geom.Vec3]struct{}),
		index:     rtreego.NewTree(3, 8, 32),
	}
}

// AddNode inserts p unless it is already present.
func (g *Graph) AddNode(p geom.Vec3) bool {
	if _, ok := g.order[p]; ok {
		return false
	}
	g.order[p] = len(g.nodes)
	g.nodes = append(g.nodes, p)
	g.index.Insert(&indexedNode{
		pos:   p,
		order: g.order[p],
		rect:  rtreego.Point{p[0], p[1], p[2]}.ToRect(indexTolerance),
	})
	return true
}

// Connect links a and b with the Euclidean distance as cost.
func (g *Graph) Connect(a, b geom.Vec3) bool {
	return g.ConnectCost(a, b, geom.Distance(a, b))
}

// ConnectCost links a and b with an explicit cost. Self loops and duplicates
// (in either orientation) are ignored. Missing endpoints are added.
func (g *Graph) ConnectCost(a, b geom.Vec3, cost float64) bool {
	if a == b || g.Connected(a, b) {
		return false
	}
	g.AddNode(a)
	g.AddNode(b)
	g.linked[[2]geom.Vec3{a, b}] = struct{}{}
	g.connections = append(g.connections, Connection{A: a, B: b, Cost: cost})
	g.adjacency[a] = append(g.adjacency[a], Edge{To: b, Cost: cost})
	g.adjacency[b] = append(g.adjacency[b], Edge{To: a, Cost: cost})
	return true
}

func (g *Graph) Connected(a, b geom.Vec3) bool {
	if _, ok := g.linked[[2]geom.Vec3{a, b}]; ok {
		return true
	}
	_, ok := g.linked[[2]geom.Vec3{b, a}]
	return ok
}

func (g *Graph) HasNode(p geom.Vec3) bool {
	_, ok := g.order[p]
	return ok
}

func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []geom.Vec3 {
	copied := make([]geom.Vec3, len(g.nodes))
	copy(copied, g.nodes)
	return copied
}

func (g *Graph) Connections() []Connection {
	copied := make([]Connection, len(g.connections))
	copy(copied, g.connections)
	return copied
}

// Neighbors returns the outgoing edges of p. The slice must not be modified.
func (g *Graph) Neighbors(p geom.Vec3) []Edge {
	return g.adjacency[p]
}

// Prune drops nodes without connections and returns how many were removed.
func (g *Graph) Prune() int {
	kept := make([]geom.Vec3, 0, len(g.nodes))
	for _, n := range g.nodes {
		if len(g.adjacency[n]) > 0 {
			kept = append(kept, n)
		}
	}
	removed := len(g.nodes) - len(kept)
	if removed == 0 {
		return 0
	}
	g.nodes = nil
	g.order = make(map[geom.Vec3]int, len(kept))
	g.index = rtreego.NewTree(3, 8, 32)
	for _, n := range kept {
		g.AddNode(n)
	}
	return removed
}

// Nearest returns the node closest to pos that the agent can walk to in a
// straight line. When no node is reachable that way the closest node overall
// is returned unless strict is set. ok is false when nothing qualifies.
func (g *Graph) Nearest(pos geom.Vec3, oracle spatial.Oracle, radius float64, strict bool) (geom.Vec3, bool) {
	if g == nil || len(g.nodes) == 0 {
		return geom.Vec3{}, false
	}
	if _, ok := g.order[pos]; ok {
		return pos, true
	}
	total := len(g.nodes)
	seen := make(map[geom.Vec3]struct{}, total)
	for k := min(8, total); ; k = min(k*2, total) {
		for _, c := range g.nearestK(pos, k) {
			if _, done := seen[c]; done {
				continue
			}
			seen[c] = struct{}{}
			if spatial.Clear(oracle, pos, c, radius) {
				return c, true
			}
		}
		if k == total {
			break
		}
	}
	if strict {
		return geom.Vec3{}, false
	}
	return g.nearestK(pos, 1)[0], true
}

// nearestK returns the k closest nodes ordered by exact distance, ties broken
// by insertion order.
func (g *Graph) nearestK(pos geom.Vec3, k int) []geom.Vec3 {
	found := g.index.NearestNeighbors(k, rtreego.Point{pos[0], pos[1], pos[2]})
	nodes := make([]*indexedNode, 0, len(found))
	for _, s := range found {
		if n, ok := s.(*indexedNode); ok {
			nodes = append(nodes, n)
		}
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		di, dj := geom.Distance(pos, nodes[i].pos), geom.Distance(pos, nodes[j].pos)
		if di != dj {
			return di < dj
		}
		return nodes[i].order < nodes[j].order
	})
	out := make([]geom.Vec3, len(nodes))
	for i, n := range nodes {
		out[i] = n.pos
	}
	return out
}
