package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/pathinfo"
	"github.com/bxf12315/depgraph/store"
)

func newPathsCommand(root *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths <group:artifact:version>",
		Short: "list every declared path from the view's roots to a target coordinate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cc *cobra.Command, args []string) error {
			ctx := cc.Context()
			eng, s, v, err := buildEngine(ctx, cc)
			if err != nil {
				return err
			}
			target, err := coordinate.Parse(args[0])
			if err != nil {
				return err
			}

			paths, err := eng.AllPathsTo(ctx, v.ShortID(), target)
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
		},
	}
	return cmd
}

// renderPath resolves a Path's opaque RID sequence back into the
// relationship chain it denotes, one store.Edge lookup per hop, and joins
// the declaring/target coordinates of each hop into a single arrow chain.
// A Path only ever carries identifiers (pathinfo's own doc comment cites
// this as deliberate, to keep a Path comparable and cheap to extend), so
// this lookup is the only way a consumer outside the traversal engine can
// turn one back into something printable.
func renderPath(ctx context.Context, s store.Store, p pathinfo.Path) (string, error) {
	if p.IsEmpty() {
		return "(root)", nil
	}
	rids := p.RIDs()
	var b strings.Builder
	for i, rid := range rids {
		rel, err := s.Edge(ctx, rid)
		if err != nil {
			return "", err
		}
		if i == 0 {
			b.WriteString(rel.Declaring().String())
		}
		b.WriteString(" -[")
		b.WriteString(rel.Kind().String())
		b.WriteString("]-> ")
		b.WriteString(rel.Target().String())
	}
	return b.String(), nil
}
