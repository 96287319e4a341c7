// Package cycle implements spec.md §4.7's lazy, per-view cycle detector:
// on demand, it walks a view's roots looking for minimal back-edge
// cycles, caches what it finds, and marks each cycle's injecting edge in
// the store so future avoid-cycles traversals can skip it without
// re-deriving the cycle.
//
// The back-edge scan itself is grounded on
// internal/mod/mvs.Graph.FindPath's breadth-first, parent-map path
// reconstruction (internal/mod/mvs/graph.go) — repurposed here to
// *detect* a repeated node during the walk rather than search for a
// caller-supplied target.
package cycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/bxf12315/depgraph/graphid"
	"github.com/bxf12315/depgraph/pathinfo"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/store"
	"github.com/bxf12315/depgraph/traverse"
	"github.com/bxf12315/depgraph/view"
)

// cyclesInjectedProperty is the store edge-property key Detector sets
// when it records a cycle's injecting edge, and the key a Store
// implementation's Edge method must consult to reconstruct a
// relationship.Relationship with CyclesInjected()==true — the persisted
// form of spec.md §4.7's CYCLES_INJECTED invariant, expressed through
// the minimal property-get/set surface store.Store offers rather than a
// bespoke "mark edge" method.
const cyclesInjectedProperty = "cycles_injected"

// Cycle is one minimal cyclic path found in a view: the cyclic Path
// itself (spec.md §4.7: "the tail of the Path from the first occurrence
// of the re-encountered node up to the injecting edge") and the RID of
// its injecting edge — the last edge of the cycle, the one that closes
// the loop back to an already-visited node.
type Cycle struct {
	Path        pathinfo.Path
	InjectorRID graphid.RID
}

// Detector owns the per-view cycle-cache. One Detector can serve many
// views; each view's cache entry is independent.
type Detector struct {
	store  store.Store
	engine *traverse.Engine

	mu    sync.Mutex
	cache map[string][]Cycle
}

// New constructs a Detector backed by s, running its scans through eng.
func New(s store.Store, eng *traverse.Engine) *Detector {
	return &Detector{store: s, engine: eng, cache: map[string][]Cycle{}}
}

// GetCycles returns every cycle currently known for v, rebuilding the
// cache first if v's cycle-pending flag is set — spec.md §4.7's
// get_cycles.
func (d *Detector) GetCycles(ctx context.Context, v *view.View) ([]Cycle, error) {
	if v.CyclePending() {
		if v.CyclesKnownAbsent() {
			// The materialization pass that set the pending flag already
			// walked this view's roots with the same traversal parameters
			// rebuild uses below and found no cycles; a second identical
			// walk over the same store would find the same nothing.
			d.mu.Lock()
			d.cache[v.ShortID()] = nil
			d.mu.Unlock()
		} else if err := d.rebuild(ctx, v); err != nil {
			return nil, err
		}
		v.MarkCyclesRebuilt()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Cycle(nil), d.cache[v.ShortID()]...), nil
}

// IsCycleParticipant reports whether node occurs in any cached cycle of
// v. Per spec.md §4.7, this is O(#cycles) over the cached set, not a
// fresh traversal.
func (d *Detector) IsCycleParticipant(ctx context.Context, v *view.View, node graphid.NID) (bool, error) {
	cycles, err := d.GetCycles(ctx, v)
	if err != nil {
		return false, err
	}
	for _, c := range cycles {
		nodes, err := d.nodesOf(ctx, c.Path)
		if err != nil {
			return false, err
		}
		for _, n := range nodes {
			if n == node {
				return true, nil
			}
		}
	}
	return false, nil
}

func (d *Detector) rebuild(ctx context.Context, v *view.View) error {
	cfg := v.Config()
	rootInfo := pathinfo.NewInfo(cfg.Filter, cfg.Selector)

	rootNodes := make([]graphid.NID, 0, len(cfg.Roots))
	for _, c := range cfg.Roots {
		id, err := d.store.CreateNode(ctx, nil, c)
		if err != nil {
			return store.NewError(store.DriverFailure, "cycle.rebuild", err)
		}
		rootNodes = append(rootNodes, id)
	}

	updater := &cycleCacheUpdater{rootInfo: rootInfo}
	if err := d.engine.Run(ctx, rootNodes, traverse.BreadthFirst, traverse.Outgoing, false, true, updater); err != nil {
		return store.NewError(store.DriverFailure, "cycle.rebuild", err)
	}

	for _, c := range updater.cycles {
		if err := d.store.SetEdgeProperty(ctx, nil, c.InjectorRID, cyclesInjectedProperty, "true"); err != nil {
			return store.NewError(store.DriverFailure, "cycle.rebuild", err)
		}
	}

	d.mu.Lock()
	d.cache[v.ShortID()] = updater.cycles
	d.mu.Unlock()
	return nil
}

// nodesOf reconstructs the node sequence a (non-empty) cyclic Path
// touches, the same way viewUpdater.resolveNodes does for the view
// package's path cache.
func (d *Detector) nodesOf(ctx context.Context, p pathinfo.Path) ([]graphid.NID, error) {
	rids := p.RIDs()
	if len(rids) == 0 {
		return nil, nil
	}
	first, err := d.store.Edge(ctx, rids[0])
	if err != nil {
		return nil, fmt.Errorf("cycle: resolving cycle node sequence: %w", err)
	}
	root, err := d.store.CreateNode(ctx, nil, first.Declaring())
	if err != nil {
		return nil, err
	}
	nodes := make([]graphid.NID, 0, len(rids)+1)
	nodes = append(nodes, root)
	for i, rid := range rids {
		rel := first
		if i > 0 {
			rel, err = d.store.Edge(ctx, rid)
			if err != nil {
				return nil, fmt.Errorf("cycle: resolving cycle node sequence: %w", err)
			}
		}
		n, err := d.store.CreateNode(ctx, nil, rel.Target())
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// cycleCacheUpdater is spec.md §4.7's CycleCacheUpdater: it records every
// CycleDetected emission without otherwise affecting the walk (unlike
// viewUpdater, it has no path-cache to write — traversal simply
// continues past non-cyclic edges on its own).
type cycleCacheUpdater struct {
	rootInfo pathinfo.Info
	cycles   []Cycle
}

var _ traverse.Visitor = (*cycleCacheUpdater)(nil)

func (u *cycleCacheUpdater) IsEnabledFor(pathinfo.Path) bool                        { return true }
func (u *cycleCacheUpdater) ShouldAvoidRedundantPaths() bool                        { return false }
func (u *cycleCacheUpdater) HasSeen(pathinfo.Path, pathinfo.Info) bool              { return false }
func (u *cycleCacheUpdater) SplicePath(p pathinfo.Path) pathinfo.Path               { return p }
func (u *cycleCacheUpdater) SplicePathInfo(pi pathinfo.Info) pathinfo.Info          { return pi }
func (u *cycleCacheUpdater) InitializePathInfo(pathinfo.Path) pathinfo.Info         { return u.rootInfo }
func (u *cycleCacheUpdater) IncludeChildren(pathinfo.Path, pathinfo.Info, graphid.NID) bool {
	return true
}
func (u *cycleCacheUpdater) IncludingChild(relationship.Relationship, pathinfo.Path, pathinfo.Info, pathinfo.Path) {
}
func (u *cycleCacheUpdater) CycleDetected(cyclePath pathinfo.Path, edge relationship.Relationship) {
	u.cycles = append(u.cycles, Cycle{Path: cyclePath, InjectorRID: edge.RID()})
}
func (u *cycleCacheUpdater) TraverseComplete() {}
