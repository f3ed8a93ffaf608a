// Package navtable precomputes next-hop routing between every pair of graph
// nodes and answers path lookups for agents at run time.
package navtable

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/navgraph"
	"easy-ai/server/internal/pathfind"
)

var (
	// ErrNoRoute is returned when the table has no entry for a pair.
	ErrNoRoute = errors.New("navtable: no route")
	// ErrCorruptTable is returned when persisted data is inconsistent.
	ErrCorruptTable = errors.New("navtable: corrupt table")
)

// Entry says: standing on Current and heading to Goal, walk to Next.
type Entry struct {
	Current geom.Vec3 `json:"current" msgpack:"current"`
	Goal    geom.Vec3 `json:"goal" msgpack:"goal"`
	Next    geom.Vec3 `json:"next" msgpack:"next"`
}

type routeKey struct {
	current, goal geom.Vec3
}

// Table holds at most one entry per (current, goal) pair. It is read-only
// once built.
type Table struct {
	entries []Entry
	index   map[routeKey]geom.Vec3
}

func newTable(capacity int) *Table {
	return &Table{
		entries: make([]Entry, 0, capacity),
		index:   make(map[routeKey]geom.Vec3, capacity),
	}
}

// FromEntries builds a table, rejecting conflicting duplicates.
func FromEntries(entries []Entry) (*Table, error) {
	t := newTable(len(entries))
	for _, e := range entries {
		if e.Current == e.Goal {
			return nil, ErrCorruptTable
		}
		if next, ok := t.index[routeKey{e.Current, e.Goal}]; ok {
			if next != e.Next {
				return nil, ErrCorruptTable
			}
			continue
		}
		t.add(e)
	}
	return t, nil
}

func (t *Table) add(e Entry) bool {
	key := routeKey{e.Current, e.Goal}
	if _, ok := t.index[key]; ok {
		return false
	}
	t.index[key] = e.Next
	t.entries = append(t.entries, e)
	return true
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns the entries in build order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	copied := make([]Entry, len(t.entries))
	copy(copied, t.entries)
	return copied
}

// Lookup returns the next node to walk to. When current equals goal the goal
// itself is returned.
func (t *Table) Lookup(current, goal geom.Vec3) (geom.Vec3, error) {
	if current == goal {
		return goal, nil
	}
	if t == nil {
		return geom.Vec3{}, ErrNoRoute
	}
	next, ok := t.index[routeKey{current, goal}]
	if !ok {
		return geom.Vec3{}, ErrNoRoute
	}
	return next, nil
}

// Graph rebuilds nodes and the current-next connections implied by the
// entries, which is everything agents need when a table is loaded without
// regenerating the level.
func (t *Table) Graph() *navgraph.Graph {
	g := navgraph.New()
	if t == nil {
		return g
	}
	for _, e := range t.entries {
		g.AddNode(e.Current)
		g.AddNode(e.Goal)
		g.Connect(e.Current, e.Next)
	}
	return g
}

// BuildOptions tunes BuildAll.
type BuildOptions struct {
	// Workers bounds concurrent searches. Zero uses GOMAXPROCS.
	Workers int
}

// BuildAll runs A* between every ordered pair of distinct nodes and records
// one entry for every hop of every path found. Results are merged in node
// order so the table is identical regardless of worker count.
func BuildAll(ctx context.Context, g *navgraph.Graph, opts BuildOptions) (*Table, error) {
	nodes := g.Nodes()
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	perStart := make([][]Entry, len(nodes))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for i := range nodes {
		i := i
		group.Go(func() error {
			var found []Entry
			for j, goal := range nodes {
				if i == j {
					continue
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				path := pathfind.FindPath(g, nodes[i], goal)
				if len(path) < 2 {
					continue
				}
				for k := 0; k < len(path)-1; k++ {
					if path[k] == goal {
						continue
					}
					found = append(found, Entry{Current: path[k], Goal: goal, Next: path[k+1]})
				}
			}
			perStart[i] = found
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	t := newTable(len(nodes) * len(nodes))
	for _, found := range perStart {
		for _, e := range found {
			t.add(e)
		}
	}
	return t, nil
}
