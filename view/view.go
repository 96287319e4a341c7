// Package view implements spec.md §4.6's View and ViewCache: the unit
// callers query against (roots, filter, selector, mutators) and its
// three per-view caches (Nodes, Edges, Paths), materialized by a
// breadth-first traversal and kept fresh by re-materialization on
// add_relationships/register_view_selection.
//
// The lazy-materialize-then-cache shape is grounded on
// modrequirements.Requirements/ModuleGraph's sync.Once-guarded
// buildList/moduleGraph caching (internal/mod/modrequirements/requirements.go),
// adapted from one process-wide module graph to a registry of
// independently keyed, independently invalidated per-view caches.
package view

import (
	"context"
	"fmt"
	"strings"

	digest "github.com/opencontainers/go-digest"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/filter"
	"github.com/bxf12315/depgraph/graphid"
	"github.com/bxf12315/depgraph/pathinfo"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/selector"
	"github.com/bxf12315/depgraph/store"
	"github.com/bxf12315/depgraph/traverse"
)

// Config is the configuration a View is registered from: its roots, its
// root Filter/Selector, and the mutator metadata spec.md §3 attaches to
// a View (active POM-location set, active source-URI set, free-form
// config properties).
//
// Filter and Selector are Go closures with no canonical serialization, so
// FilterDescriptor/SelectorDescriptor are short, caller-supplied labels
// (e.g. "types=BOM,PARENT", "first-win") folded into the view's short-id
// alongside its roots; two views with the same roots but different
// descriptors are distinct views even if their closures happen to behave
// identically. See DESIGN.md's open-question decisions for why this is
// the chosen substitute for hashing the filter/selector themselves.
type Config struct {
	Roots              []coordinate.Coordinate
	Filter             pathinfo.Filter
	Selector           pathinfo.Selector
	FilterDescriptor   string
	SelectorDescriptor string
	POMLocations       []string
	SourceURIs         []string
	Properties         map[string]string
}

// View is spec.md §3's View: a registered query scope with its own
// stable short identifier and materialized Cache.
type View struct {
	shortID string
	cfg     Config
	store   store.Store
	engine  *traverse.Engine

	cache                 *Cache
	cyclePending          bool
	noCyclesAtMaterialize bool
}

// ShortID returns the view's deterministic short identifier.
func (v *View) ShortID() string { return v.shortID }

// Config returns the view's configuration.
func (v *View) Config() Config { return v.cfg }

// Cache returns the view's materialized cache.
func (v *View) Cache() *Cache { return v.cache }

// CyclePending reports whether the view's cycle-cache needs a rebuild
// before the next get_cycles call.
func (v *View) CyclePending() bool { return v.cyclePending }

// MarkCyclesRebuilt clears the cycle-pending flag; called by package
// cycle once it has rebuilt this view's cycle-cache.
func (v *View) MarkCyclesRebuilt() { v.cyclePending = false }

// CyclesKnownAbsent reports whether the materialization traversal that
// last ran for this view (under the same BreadthFirst/Outgoing/avoidCycles
// parameters package cycle's own rescan uses) visited zero cycles. When
// true, package cycle can skip re-walking the view from scratch and cache
// an empty cycle set directly, since a second identical walk over an
// unchanged store would find the same nothing the first one did.
func (v *View) CyclesKnownAbsent() bool { return v.noCyclesAtMaterialize }

// ShortID computes the deterministic short identifier spec.md §3
// requires of a View's configuration: a digest over its sorted root
// coordinates and its filter/selector descriptors.
func ShortID(cfg Config) string {
	roots := append([]coordinate.Coordinate(nil), cfg.Roots...)
	coordinate.Sort(roots)
	var b strings.Builder
	for _, c := range roots {
		b.WriteString(c.String())
		b.WriteByte(';')
	}
	b.WriteString("filter=")
	b.WriteString(cfg.FilterDescriptor)
	b.WriteString(";selector=")
	b.WriteString(cfg.SelectorDescriptor)
	return digest.FromString(b.String()).String()
}

// Register materializes a new View for cfg: spec.md §4.6's registration
// algorithm, steps 1-3. It fails with an InvalidArgument store.Error if
// cfg has no roots.
func Register(ctx context.Context, s store.Store, eng *traverse.Engine, cfg Config) (*View, error) {
	if len(cfg.Roots) == 0 {
		return nil, store.NewError(store.InvalidArgument, "view.Register", fmt.Errorf("view must have at least one root"))
	}
	if cfg.Filter == nil {
		cfg.Filter = filter.AcceptAll()
	}
	if cfg.Selector == nil {
		cfg.Selector = selector.PassThrough()
	}
	v := &View{
		shortID: ShortID(cfg),
		cfg:     cfg,
		store:   s,
		engine:  eng,
	}
	if err := v.materialize(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// materialize rebuilds v's cache from scratch by re-running the view's
// registration traversal. Any prior cache is discarded.
func (v *View) materialize(ctx context.Context) error {
	cache := newCache()
	rootInfo := pathinfo.NewInfo(v.cfg.Filter, v.cfg.Selector)

	roots := append([]coordinate.Coordinate(nil), v.cfg.Roots...)
	coordinate.Sort(roots)

	rootNodes := make([]graphid.NID, 0, len(roots))
	for _, c := range roots {
		id, err := v.store.CreateNode(ctx, nil, c)
		if err != nil {
			return store.NewError(store.DriverFailure, "view.materialize", err)
		}
		cache.addRoot(id, rootInfo)
		rootNodes = append(rootNodes, id)
	}

	updater := &viewUpdater{ctx: ctx, store: v.store, cache: cache, rootInfo: rootInfo}
	if err := v.engine.Run(ctx, rootNodes, traverse.BreadthFirst, traverse.Outgoing, false, true, updater); err != nil {
		return store.NewError(store.DriverFailure, "view.materialize", err)
	}
	if updater.err != nil {
		return store.NewError(store.DriverFailure, "view.materialize", updater.err)
	}

	v.cache = cache
	v.cyclePending = true
	v.noCyclesAtMaterialize = !updater.cyclesFound
	return nil
}

// AddRelationships is spec.md §4.6's add_relationships re-materialization
// trigger: "for each registered view not in the suppression set, the
// ViewUpdater is invoked with the new edges; if any new edge's declaring
// node is already in Nodes, the new edge and all of its descendant paths
// are cached and the view's cycle-pending flag is set." This
// implementation takes the simpler, always-correct route of a full
// re-materialization rather than an incremental one; see DESIGN.md for
// why, given this module's in-memory scale, incremental cache surgery
// wasn't worth the added state to get right.
func (v *View) AddRelationships(ctx context.Context, added []relationship.Relationship) error {
	for _, rel := range added {
		if v.cache.ContainsNode(mustLookup(ctx, v.store, rel.Declaring())) {
			return v.materialize(ctx)
		}
	}
	return nil
}

// RegisterSelection is spec.md §4.6's register_view_selection
// re-materialization trigger. Like AddRelationships, it takes the full
// re-materialization route rather than rebuilding only the paths
// downstream of ga's divergence point: materialize discards and rebuilds
// v.cache wholesale, so any prefix-preserving edit made ahead of it would
// be overwritten before anything could read it. See DESIGN.md for why
// this module doesn't attempt the incremental version.
func (v *View) RegisterSelection(ctx context.Context, ga coordinate.GA) error {
	return v.materialize(ctx)
}

func mustLookup(ctx context.Context, s store.Store, c coordinate.Coordinate) graphid.NID {
	id, err := s.CreateNode(ctx, nil, c)
	if err != nil {
		return ""
	}
	return id
}
