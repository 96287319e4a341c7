package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/query"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/store"
)

// newQueryCommand builds the "query" REPL: unlike the other subcommands,
// it loads --graph/--view exactly once and then accepts a line at a time
// from stdin, each tokenized with shlex the way a shell would, dispatching
// to the same show/paths/direct/cycles operations without re-parsing the
// graph document per line.
func newQueryCommand(root *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "ad-hoc REPL over a graph built once from --graph/--view",
		RunE: func(cc *cobra.Command, args []string) error {
			ctx := cc.Context()
			eng, s, v, err := buildEngine(ctx, cc)
			if err != nil {
				return err
			}
			viewID := v.ShortID()

			in := bufio.NewScanner(cc.InOrStdin())
			for in.Scan() {
				line := strings.TrimSpace(in.Text())
				if line == "" {
					continue
				}
				if line == "quit" || line == "exit" {
					return nil
				}
				tokens, err := shlex.Split(line)
				if err != nil {
					root.Printf("error: %v", err)
					continue
				}
				if err := runQueryLine(ctx, root, eng, s, viewID, tokens); err != nil {
					root.Printf("error: %v", err)
				}
			}
			if err := in.Err(); err != nil && err != io.EOF {
				return err
			}
			return nil
		},
	}
	return cmd
}

// runQueryLine dispatches one REPL line to the same operations the
// one-shot show/paths/direct/cycles subcommands perform.
func runQueryLine(ctx context.Context, root *Command, eng *query.Engine, s store.Store, viewID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	switch tokens[0] {
	case "show":
		return queryShow(ctx, root, eng, viewID)
	case "paths":
		if len(tokens) != 2 {
			return fmt.Errorf("usage: paths <group:artifact:version>")
		}
		return queryPaths(ctx, root, eng, s, viewID, tokens[1])
	case "direct":
		if len(tokens) < 2 {
			return fmt.Errorf("usage: direct <group:artifact:version> [--to]")
		}
		return queryDirect(ctx, root, eng, viewID, tokens[1], containsFlag(tokens[2:], "--to"))
	case "cycles":
		return queryCycles(ctx, root, eng, s, viewID)
	default:
		return fmt.Errorf("unrecognized command %q (try show, paths, direct, cycles, quit)", tokens[0])
	}
}

func containsFlag(tokens []string, target string) bool {
	for _, t := range tokens {
		if t == target {
			return true
		}
	}
	return false
}

func queryShow(ctx context.Context, root *Command, eng *query.Engine, viewID string) error {
	projects, err := eng.AllProjects(ctx, viewID)
	if err != nil {
		return err
	}
	coordinate.Sort(projects)
	root.Printf("%d project(s):", len(projects))
	for _, c := range projects {
		root.Printf("  %s", c.String())
	}

	edges, err := eng.AllEdges(ctx, viewID)
	if err != nil {
		return err
	}
	root.Printf("%d relationship(s):", len(edges))
	for _, e := range edges {
		root.Printf("  %s -[%s]-> %s", e.Declaring(), e.Kind(), e.Target())
	}
	return nil
}

func queryPaths(ctx context.Context, root *Command, eng *query.Engine, s store.Store, viewID, coordStr string) error {
	target, err := coordinate.Parse(coordStr)
	if err != nil {
		return err
	}
	paths, err := eng.AllPathsTo(ctx, viewID, target)
	if err != nil {
		return err
	}
	root.Printf("%d path(s) to %s:", len(paths), target)
	for _, p := range paths {
		rendered, err := renderPath(ctx, s, p)
		if err != nil {
			return err
		}
		root.Printf("  %s", rendered)
	}
	return nil
}

func queryDirect(ctx context.Context, root *Command, eng *query.Engine, viewID, coordStr string, to bool) error {
	c, err := coordinate.Parse(coordStr)
	if err != nil {
		return err
	}
	var rels []relationship.Relationship
	if to {
		rels, err = eng.DirectTo(ctx, viewID, c, true, true)
	} else {
		rels, err = eng.DirectFrom(ctx, viewID, c, true, true)
	}
	if err != nil {
		return err
	}
	root.Printf("%d relationship(s):", len(rels))
	for _, r := range rels {
		root.Printf("  %s -[%s]-> %s", r.Declaring(), r.Kind(), r.Target())
	}
	return nil
}

func queryCycles(ctx context.Context, root *Command, eng *query.Engine, s store.Store, viewID string) error {
	cycles, err := eng.GetCycles(ctx, viewID)
	if err != nil {
		return err
	}
	root.Printf("%d cycle(s):", len(cycles))
	for _, c := range cycles {
		rendered, err := renderPath(ctx, s, c.Path)
		if err != nil {
			return err
		}
		root.Printf("  %s  (closed by %s)", rendered, c.InjectorRID)
	}
	return nil
}
