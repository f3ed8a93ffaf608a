// Package pathfind runs A* over a navigation graph and string-pulls the
// resulting waypoint lists.
package pathfind

import (
	"container/heap"

	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/navgraph"
)

// Graph is the adjacency view A* needs.
type Graph interface {
	Neighbors(node geom.Vec3) []navgraph.Edge
}

type pathNode struct {
	point  geom.Vec3
	g      float64
	f      float64
	seq    int
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

// Less orders by f, then by discovery order so equal-cost searches are
// reproducible.
func (pq pathQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].seq < pq[j].seq
}

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func heuristic(a, b geom.Vec3) float64 {
	return geom.Distance(a, b)
}

// FindPath returns the cheapest node sequence from start to goal, both
// inclusive. The result is empty when goal cannot be reached. Edge costs are
// expected to be at least the straight-line distance so the Euclidean
// heuristic stays admissible.
func FindPath(g Graph, start, goal geom.Vec3) []geom.Vec3 {
	if start == goal {
		return []geom.Vec3{start}
	}
	if g == nil {
		return nil
	}
	open := &pathQueue{}
	heap.Init(open)
	seq := 0
	heap.Push(open, &pathNode{point: start, f: heuristic(start, goal), seq: seq})
	gScore := map[geom.Vec3]float64{start: 0}
	closed := make(map[geom.Vec3]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if _, seen := closed[current.point]; seen {
			continue
		}
		closed[current.point] = struct{}{}
		if current.point == goal {
			return reconstructPath(current)
		}

		for _, edge := range g.Neighbors(current.point) {
			if _, seen := closed[edge.To]; seen {
				continue
			}
			tentativeG := current.g + edge.Cost
			if prev, ok := gScore[edge.To]; ok && tentativeG >= prev {
				continue
			}
			gScore[edge.To] = tentativeG
			seq++
			heap.Push(open, &pathNode{
				point:  edge.To,
				g:      tentativeG,
				f:      tentativeG + heuristic(edge.To, goal),
				seq:    seq,
				parent: current,
			})
		}
	}
	return nil
}

func reconstructPath(end *pathNode) []geom.Vec3 {
	if end == nil {
		return nil
	}
	path := make([]geom.Vec3, 0)
	for node := end; node != nil; node = node.parent {
		path = append(path, node.point)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Cost sums the Euclidean length of consecutive segments.
func Cost(path []geom.Vec3) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += geom.Distance(path[i-1], path[i])
	}
	return total
}
