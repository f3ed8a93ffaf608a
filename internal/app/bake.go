package app

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"easy-ai/server/internal/config"
	"easy-ai/server/internal/geom"
	"easy-ai/server/internal/navtable"
	"easy-ai/server/internal/scenario"
)

// Bake builds the configured level's graph and table and writes the table to
// cfg.Navigation.TablePath.
func Bake(ctx context.Context, cfg config.Config, opts Options) (*scenario.World, error) {
	opts = opts.normalized()
	if cfg.Navigation.TablePath == "" {
		return nil, errors.Wrap(config.ErrInvalid, "bake needs navigation.tablePath")
	}
	cfg.Navigation.LoadTable = false

	router, closeRouter, err := NewRouter(cfg, opts.Stdout)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := closeRouter(context.WithoutCancel(ctx)); cerr != nil {
			opts.Logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	world, err := scenario.BuildWorld(ctx, cfg, scenario.Deps{Publisher: router, Logger: opts.Logger})
	if err != nil {
		return nil, err
	}
	opts.Logger.Printf("baked %d nodes and %d entries into %s", world.Graph.Len(), world.Table.Len(), cfg.Navigation.TablePath)
	return world, nil
}

// Report summarizes a stored table.
type Report struct {
	Nodes       int
	Connections int
	Entries     int
	// Broken lists routes whose hops do not reach their goal.
	Broken []navtable.Entry
}

// Inspect loads the table at path and follows every route hop by hop.
func Inspect(path string) (Report, error) {
	table, err := navtable.Load(path)
	if err != nil {
		return Report{}, err
	}
	graph := table.Graph()
	report := Report{
		Nodes:       graph.Len(),
		Connections: len(graph.Connections()),
		Entries:     table.Len(),
	}
	for _, e := range table.Entries() {
		if !reaches(table, e.Current, e.Goal) {
			report.Broken = append(report.Broken, e)
		}
	}
	return report, nil
}

func reaches(table *navtable.Table, from, goal geom.Vec3) bool {
	current := from
	for hops := 0; hops <= table.Len(); hops++ {
		if current == goal {
			return true
		}
		next, err := table.Lookup(current, goal)
		if err != nil {
			return false
		}
		current = next
	}
	return false
}

// Print writes r in a human readable form.
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "nodes: %d\nconnections: %d\nentries: %d\n", r.Nodes, r.Connections, r.Entries)
	if len(r.Broken) == 0 {
		fmt.Fprintln(w, "all routes reach their goal")
		return
	}
	fmt.Fprintf(w, "broken routes: %d\n", len(r.Broken))
	for _, e := range r.Broken {
		fmt.Fprintf(w, "  %v -> %v via %v\n", e.Current, e.Goal, e.Next)
	}
}
