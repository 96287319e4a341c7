// Command depgraphctl is a thin, stateless-per-invocation CLI over
// query.Engine backed by package memstore — a way to exercise show/paths/
// cycles/direct queries against a hand-written relationship graph without
// wiring up a real property-graph database or a Maven parser, both out of
// scope for the core engine itself.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/bxf12315/depgraph/memstore"
	"github.com/bxf12315/depgraph/query"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/store"
	"github.com/bxf12315/depgraph/view"
)

// Command wraps a cobra.Command with the localized-output plumbing the
// subcommands share, grounded on cmd/cue/cmd's own Command wrapper
// (root.go's mkRunE, common.go's getLang/message.NewPrinter pairing).
type Command struct {
	*cobra.Command
	printer *message.Printer
}

func getLang() language.Tag {
	loc := os.Getenv("LC_ALL")
	if loc == "" {
		loc = os.Getenv("LANG")
	}
	loc = strings.Split(loc, ".")[0]
	return language.Make(loc)
}

// Printf writes a localized, formatted line to the command's stdout.
func (c *Command) Printf(format string, args ...any) {
	c.printer.Fprintf(c.OutOrStdout(), format+"\n", args...)
}

func newRootCommand() *Command {
	root := &cobra.Command{
		Use:           "depgraphctl",
		Short:         "inspect a dependency graph loaded from a relationship document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c := &Command{Command: root, printer: message.NewPrinter(getLang())}

	root.PersistentFlags().String("graph", "", "path to a relationship-document YAML file (required)")
	root.PersistentFlags().String("view", "", "path to a view-spec YAML file (defaults to roots=every declaring coordinate that is never a target, or every declaring coordinate if none qualifies, accept-all filter, pass-through selector)")
	root.MarkPersistentFlagRequired("graph")

	root.AddCommand(
		newShowCommand(c),
		newPathsCommand(c),
		newDirectCommand(c),
		newCyclesCommand(c),
		newQueryCommand(c),
	)
	return c
}

// buildEngine loads --graph, ingests it, resolves --view (or a
// whole-graph default), and registers the resulting view — the common
// setup path for every one-shot subcommand as well as the query REPL. It
// also returns the backing store directly, since query.Engine itself has
// no public method to resolve a bare edge identifier back into a
// relationship outside of the view/path operations that already do so
// internally.
func buildEngine(ctx context.Context, cmd *cobra.Command) (*query.Engine, store.Store, *view.View, error) {
	graphPath, err := cmd.Flags().GetString("graph")
	if err != nil || graphPath == "" {
		return nil, nil, nil, fmt.Errorf("depgraphctl: --graph is required")
	}
	doc, err := loadGraphDoc(graphPath)
	if err != nil {
		return nil, nil, nil, err
	}
	rels, err := doc.toRelationships()
	if err != nil {
		return nil, nil, nil, err
	}

	s := memstore.New()
	eng := query.New(s)
	if _, err := eng.AddRelationships(ctx, rels); err != nil {
		return nil, nil, nil, fmt.Errorf("depgraphctl: loading graph: %w", err)
	}

	cfg, err := resolveViewConfig(cmd, rels)
	if err != nil {
		return nil, nil, nil, err
	}
	v, err := eng.RegisterView(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("depgraphctl: registering view: %w", err)
	}
	return eng, s, v, nil
}

func resolveViewConfig(cmd *cobra.Command, rels []relationship.Relationship) (view.Config, error) {
	viewPath, err := cmd.Flags().GetString("view")
	if err != nil {
		return view.Config{}, err
	}
	if viewPath != "" {
		data, err := os.ReadFile(viewPath)
		if err != nil {
			return view.Config{}, fmt.Errorf("depgraphctl: reading view spec: %w", err)
		}
		spec, err := memstore.DecodeViewSpec(data)
		if err != nil {
			return view.Config{}, err
		}
		return spec.ToConfig()
	}

	spec := memstore.ViewSpec{Roots: defaultRoots(rels)}
	return spec.ToConfig()
}

// defaultRoots treats every coordinate that is never itself a target as a
// root — i.e. the top-level artifacts a caller didn't hand-pick a view
// for.
func defaultRoots(rels []relationship.Relationship) []string {
	isTarget := make(map[string]bool, len(rels))
	var order []string
	seen := make(map[string]bool, len(rels))
	for _, r := range rels {
		isTarget[r.Target().String()] = true
	}
	for _, r := range rels {
		s := r.Declaring().String()
		if !seen[s] {
			seen[s] = true
			order = append(order, s)
		}
	}
	var roots []string
	for _, s := range order {
		if !isTarget[s] {
			roots = append(roots, s)
		}
	}
	if len(roots) == 0 {
		// Every declaring coordinate is also someone's target (a cycle
		// with no clear entry point, or an empty graph): fall back to
		// every declaring coordinate rather than producing no roots.
		roots = order
	}
	return roots
}

// Execute runs the root command against os.Args, returning the process
// exit code.
func Execute() int {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
