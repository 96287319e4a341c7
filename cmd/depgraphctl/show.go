package main

import (
	"github.com/spf13/cobra"

	"github.com/bxf12315/depgraph/coordinate"
)

func newShowCommand(root *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "list every coordinate and relationship the view's cache materialized",
		RunE: func(cc *cobra.Command, args []string) error {
			ctx := cc.Context()
			eng, _, v, err := buildEngine(ctx, cc)
			if err != nil {
				return err
			}
			root.Printf("view %s", v.ShortID())

			projects, err := eng.AllProjects(ctx, v.ShortID())
			if err != nil {
				return err
			}
			coordinate.Sort(projects)
			root.Printf("%d project(s):", len(projects))
			for _, c := range projects {
				root.Printf("  %s", c.String())
			}

			edges, err := eng.AllEdges(ctx, v.ShortID())
			if err != nil {
				return err
			}
			root.Printf("%d relationship(s):", len(edges))
			for _, e := range edges {
				root.Printf("  %s -[%s]-> %s", e.Declaring(), e.Kind(), e.Target())
			}
			return nil
		},
	}
	return cmd
}
