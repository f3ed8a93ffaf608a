package navtable

import (
	"context"

	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/navgraph"
	"easy-ai/server/internal/pathfind"
	"easy-ai/server/internal/spatial"
	"easy-ai/server/logging"
	loggingNavigation "easy-ai/server/logging/navigation"
)

// Navigator answers "how do I get from here to there" using the graph, the
// precomputed table and the obstacle oracle.
type Navigator struct {
	graph      *navgraph.Graph
	table      *Table
	oracle     spatial.Oracle
	radius     float64
	strict     bool
	simplifier pathfind.Simplifier
	publisher  logging.Publisher
	clock      func() uint64
}

// NavigatorConfig configures a Navigator.
type NavigatorConfig struct {
	Oracle spatial.Oracle
	Radius float64
	// PullMaxHeight limits string pulling across height changes; <= 0 disables the limit.
	PullMaxHeight float64
	// StrictNearest makes a position with no visible node walk straight to
	// the goal instead of snapping to the closest hidden node.
	StrictNearest bool
	Publisher     logging.Publisher
	// Tick reports the current simulation tick for emitted events.
	Tick func() uint64
}

func NewNavigator(g *navgraph.Graph, t *Table, cfg NavigatorConfig) *Navigator {
	pub := cfg.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	return &Navigator{
		graph:  g,
		table:  t,
		oracle: cfg.Oracle,
		radius: cfg.Radius,
		strict: cfg.StrictNearest,
		simplifier: pathfind.Simplifier{
			Oracle:         cfg.Oracle,
			Radius:         cfg.Radius,
			MaxHeightDelta: cfg.PullMaxHeight,
		},
		publisher: pub,
		clock:     cfg.Tick,
	}
}

func (n *Navigator) Graph() *navgraph.Graph { return n.graph }
func (n *Navigator) Table() *Table          { return n.table }
func (n *Navigator) Oracle() spatial.Oracle { return n.oracle }
func (n *Navigator) Radius() float64        { return n.radius }

// LookupPath returns the waypoints to walk from position to goal. The result
// always ends at goal. With no graph, or with a clear straight walk, it is
// just [goal]. Otherwise it starts at position, enters the graph at the
// nearest reachable node, follows the table and leaves at the node nearest
// the goal; the list is then string-pulled in both directions.
func (n *Navigator) LookupPath(position, goal geom.Vec3) []geom.Vec3 {
	if n == nil || n.graph.Len() == 0 {
		return []geom.Vec3{goal}
	}
	if spatial.Clear(n.oracle, position, goal, n.radius) {
		return []geom.Vec3{goal}
	}
	nodePosition, ok := n.graph.Nearest(position, n.oracle, n.radius, n.strict)
	if !ok {
		return []geom.Vec3{goal}
	}
	nodeGoal, ok := n.graph.Nearest(goal, n.oracle, n.radius, n.strict)
	if !ok {
		return []geom.Vec3{goal}
	}

	path := []geom.Vec3{position}
	path = appendDistinct(path, nodePosition)
	current := nodePosition
	for hops := 0; current != nodeGoal && hops <= n.table.Len(); hops++ {
		next, err := n.table.Lookup(current, nodeGoal)
		if err != nil {
			n.unreachable(position, goal, current, nodeGoal)
			break
		}
		path = appendDistinct(path, next)
		current = next
	}
	path = appendDistinct(path, nodeGoal)
	path = appendDistinct(path, goal)
	return n.simplifier.Simplify(path)
}

func (n *Navigator) unreachable(position, goal, from, to geom.Vec3) {
	var tick uint64
	if n.clock != nil {
		tick = n.clock()
	}
	loggingNavigation.PathUnreachable(context.Background(), n.publisher, tick, loggingNavigation.PathUnreachablePayload{
		From:     position,
		To:       goal,
		NodeFrom: from,
		NodeTo:   to,
	}, nil)
}

func appendDistinct(path []geom.Vec3, p geom.Vec3) []geom.Vec3 {
	if len(path) > 0 && path[len(path)-1] == p {
		return path
	}
	return append(path, p)
}
