package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/relationship"
)

func newDirectCommand(root *Command) *cobra.Command {
	var to, managed, concrete bool
	var typesCSV string

	cmd := &cobra.Command{
		Use:   "direct <group:artifact:version>",
		Short: "list a coordinate's direct outgoing (default) or incoming (--to) relationships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cc *cobra.Command, args []string) error {
			ctx := cc.Context()
			eng, _, v, err := buildEngine(ctx, cc)
			if err != nil {
				return err
			}
			c, err := coordinate.Parse(args[0])
			if err != nil {
				return err
			}
			types, err := parseDirectKinds(typesCSV)
			if err != nil {
				return err
			}

			var rels []relationship.Relationship
			if to {
				rels, err = eng.DirectTo(ctx, v.ShortID(), c, managed, concrete, types...)
			} else {
				rels, err = eng.DirectFrom(ctx, v.ShortID(), c, managed, concrete, types...)
			}
			if err != nil {
				return err
			}
			root.Printf("%d relationship(s):", len(rels))
			for _, r := range rels {
				root.Printf("  %s -[%s]-> %s", r.Declaring(), r.Kind(), r.Target())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&to, "to", false, "list relationships targeting the coordinate instead of declared by it")
	cmd.Flags().BoolVar(&managed, "managed", false, "include managed-only relationships")
	cmd.Flags().BoolVar(&concrete, "concrete", false, "include concrete-only relationships")
	cmd.Flags().StringVar(&typesCSV, "types", "", "comma-separated relationship kinds to restrict to (default: all kinds)")
	return cmd
}

func parseDirectKinds(csv string) ([]relationship.Kind, error) {
	if csv == "" {
		return nil, nil
	}
	var out []relationship.Kind
	for _, name := range strings.Split(csv, ",") {
		name = strings.TrimSpace(strings.ToUpper(name))
		kind, ok := kindByName[name]
		if !ok {
			return nil, fmt.Errorf("depgraphctl: unrecognized relationship kind %q", name)
		}
		out = append(out, kind)
	}
	return out, nil
}
