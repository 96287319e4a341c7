package main

import (
	"github.com/spf13/cobra"
)

func newCyclesCommand(root *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "list every cycle detected in the view",
		RunE: func(cc *cobra.Command, args []string) error {
			ctx := cc.Context()
			eng, s, v, err := buildEngine(ctx, cc)
			if err != nil {
				return err
			}

			cycles, err := eng.GetCycles(ctx, v.ShortID())
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
		},
	}
	return cmd
}
