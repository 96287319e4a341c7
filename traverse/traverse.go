// Package traverse implements the breadth-first/depth-first walk over
// typed edges described by spec.md §4.5: starting from a set of root
// nodes, it asks the store for outgoing (or incoming) edges, runs each
// candidate through the current PathInfo's Selector and Filter, and
// reports accepted edges to a Visitor.
//
// The engine itself is visitor-agnostic, the way
// internal/mod/mvs.Graph.WalkBreadthFirst (internal/mod/mvs/graph.go) is
// parameterized by a plain callback rather than subclassed per caller —
// spec.md §9 calls this out directly: "the traversal engine is
// parameterized by a Visitor capability set ... concrete visitors
// ... are alternative implementations, not subclasses of a common
// engine."
package traverse

import (
	"context"
	"fmt"
	"sort"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/graphid"
	"github.com/bxf12315/depgraph/pathinfo"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/store"
)

// Direction selects whether the engine follows outgoing or incoming
// edges from each frontier node. Outgoing is the default spec.md §4.5
// names.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
)

// Uniqueness names the two traversal-dedup regimes spec.md §4.5
// describes: RelationshipPath for per-view path caching (a node may be
// revisited on a distinct Path), RelationshipGlobal for whole-graph cycle
// scans (a node visited once, globally, for the scan's lifetime). The
// engine doesn't interpret this itself — it is realized entirely by a
// Visitor's own HasSeen bookkeeping — but the type gives callers
// (package view, package cycle) a shared vocabulary for documenting which
// regime a given Visitor implements.
type Uniqueness int

const (
	RelationshipPath Uniqueness = iota
	RelationshipGlobal
)

// Strategy selects breadth-first or depth-first order. Spec.md §4.5:
// "Breadth-first vs. depth-first is chosen per traversal pass."
type Strategy int

const (
	BreadthFirst Strategy = iota
	DepthFirst
)

// Visitor is the capability-set contract spec.md §4.5 assigns to a
// traversal's observer. Concrete visitors — ViewUpdater (package view),
// CycleCacheUpdater (package cycle) — implement it independently rather
// than inheriting from a shared base.
type Visitor interface {
	// IsEnabledFor is consulted once per root, with the empty Path, and
	// reports whether the pass should walk from that root at all;
	// returning false skips that root while the others are still walked.
	IsEnabledFor(p pathinfo.Path) bool

	// ShouldAvoidRedundantPaths reports whether HasSeen should be
	// consulted before expanding a node's children.
	ShouldAvoidRedundantPaths() bool

	// SplicePath lets the visitor rewrite the path the engine is about to
	// record for a just-accepted edge — e.g. to splice in a previously
	// cached prefix rather than the literal walked prefix.
	SplicePath(p pathinfo.Path) pathinfo.Path

	// SplicePathInfo is SplicePath's counterpart for the accompanying
	// PathInfo.
	SplicePathInfo(pi pathinfo.Info) pathinfo.Info

	// InitializePathInfo is called once per root, with Path empty, to
	// produce the PathInfo that seeds the walk from that root.
	InitializePathInfo(p pathinfo.Path) pathinfo.Info

	// HasSeen reports whether (p, pi) has already been processed and
	// should be skipped; only consulted when ShouldAvoidRedundantPaths.
	HasSeen(p pathinfo.Path, pi pathinfo.Info) bool

	// IncludeChildren reports whether node's outgoing (or incoming) edges
	// should be expanded at all, given the path/info that reached it.
	IncludeChildren(p pathinfo.Path, pi pathinfo.Info, node graphid.NID) bool

	// IncludingChild is invoked for every accepted edge, in discovery
	// order, with the new Path/PathInfo it produces and the Path it
	// extends.
	IncludingChild(e relationship.Relationship, newPath pathinfo.Path, newInfo pathinfo.Info, currentPath pathinfo.Path)

	// CycleDetected is invoked in place of IncludingChild when, with
	// avoid_cycles false, e's target node already occurs earlier in the
	// current branch. cyclePath is the tail of the path from that earlier
	// occurrence up to and including e.
	CycleDetected(cyclePath pathinfo.Path, edge relationship.Relationship)

	// TraverseComplete is invoked once after the whole pass has drained.
	TraverseComplete()
}

// Engine runs traversal passes against a Store.
type Engine struct {
	store store.Store
}

// New constructs an Engine backed by s.
func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// frontierItem is one pending node in the walk: the node itself, the
// accepted Path/PathInfo that reached it, and the sequence of node
// identifiers visited along that branch (used for the avoid_cycles=false
// back-edge scan).
type frontierItem struct {
	node    graphid.NID
	path    pathinfo.Path
	info    pathinfo.Info
	nodeSeq []graphid.NID
}

// Run walks the graph from roots using strategy/direction, skipping
// cycle-injector edges when avoidCycles is set (and otherwise detecting
// and reporting cycles inline), sorting each node's candidate edges by
// the §4.5 tie-break order when sorted is true, and reporting every
// accepted edge (or detected cycle) to visitor.
func (e *Engine) Run(ctx context.Context, roots []graphid.NID, strategy Strategy, direction Direction, avoidCycles, sorted bool, visitor Visitor) error {
	var frontier []frontierItem
	for _, root := range roots {
		path := pathinfo.Empty()
		if !visitor.IsEnabledFor(path) {
			continue
		}
		info := visitor.InitializePathInfo(path)
		frontier = append(frontier, frontierItem{node: root, path: path, info: info, nodeSeq: []graphid.NID{root}})
	}

	for len(frontier) > 0 {
		var item frontierItem
		switch strategy {
		case DepthFirst:
			item = frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
		default: // BreadthFirst
			item = frontier[0]
			frontier = frontier[1:]
		}

		if visitor.ShouldAvoidRedundantPaths() && visitor.HasSeen(item.path, item.info) {
			continue
		}
		if !visitor.IncludeChildren(item.path, item.info, item.node) {
			continue
		}

		candidates, err := e.candidateEdges(ctx, item.node, direction)
		if err != nil {
			return err
		}
		if sorted {
			sortCandidates(candidates)
		}

		for _, cand := range candidates {
			if avoidCycles && cand.CyclesInjected() {
				continue
			}
			if cand.IsSelectionEdge() {
				// Selection edges are only ever followed when a
				// Selector explicitly substitutes one in, never
				// discovered as a plain outgoing edge.
				continue
			}

			accepted, childInfo, ok := item.info.ChildPathInfo(cand, item.path)
			if !ok {
				continue
			}

			nextCoord := accepted.Target()
			if direction == Incoming {
				nextCoord = accepted.Declaring()
			}
			nextNode, err := e.store.CreateNode(ctx, nil, nextCoord)
			if err != nil {
				return err
			}
			cycleIdx := indexOf(item.nodeSeq, nextNode)

			// A Selector-substituted edge closing a cycle is rejected
			// outright rather than recorded and marked CYCLES_INJECTED the
			// way a plain discovered edge would be: a selection edge is
			// synthesized by policy, not declared in the source graph, so
			// there's no existing edge to mark and nothing useful a caller
			// could do with a cyclic substitution.
			if accepted.IsSelectionEdge() && cycleIdx >= 0 {
				return store.NewError(store.SelectionConflict, "traverse.Run",
					fmt.Errorf("selection edge %s -[%s]-> %s would introduce a cycle", accepted.Declaring(), accepted.Kind(), accepted.Target()))
			}

			// A Selector substitution resets RID to the zero value (see
			// relationship.SelectTarget): give it a stable identity via the
			// same idempotent CreateEdge path every other edge goes
			// through, so the selection edge is "discoverable in future
			// traversals of the same view" and its RID can extend Path.
			if accepted.RID().IsZero() {
				persisted, err := e.store.CreateEdge(ctx, nil, accepted)
				if err != nil {
					return err
				}
				accepted = persisted
			}

			if !avoidCycles && cycleIdx >= 0 {
				cyclePath := pathinfo.New(append(append([]graphid.RID(nil), item.path.RIDs()[cycleIdx:]...), accepted.RID())...)
				visitor.CycleDetected(cyclePath, accepted)
				continue
			}

			newPath := item.path.Append(accepted.RID())
			newPath = visitor.SplicePath(newPath)
			childInfo = visitor.SplicePathInfo(childInfo)

			visitor.IncludingChild(accepted, newPath, childInfo, item.path)

			newSeq := append(append([]graphid.NID(nil), item.nodeSeq...), nextNode)
			frontier = append(frontier, frontierItem{node: nextNode, path: newPath, info: childInfo, nodeSeq: newSeq})
		}
	}

	visitor.TraverseComplete()
	return nil
}

func (e *Engine) candidateEdges(ctx context.Context, node graphid.NID, direction Direction) ([]relationship.Relationship, error) {
	var rids []graphid.RID
	var err error
	if direction == Incoming {
		rids, err = e.store.IncomingEdges(ctx, node, store.EdgeFilter{})
	} else {
		rids, err = e.store.OutgoingEdges(ctx, node, store.EdgeFilter{})
	}
	if err != nil {
		return nil, err
	}
	out := make([]relationship.Relationship, 0, len(rids))
	for _, rid := range rids {
		rel, err := e.store.Edge(ctx, rid)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}

// sortCandidates orders candidates by the §4.5 tie-break:
// (edge-type-priority, declaring-coordinate, index, target-coordinate).
// Kind's declared order (Dependency, Plugin, PluginDep, Parent, Bom,
// Extension) is taken as edge-type-priority.
func sortCandidates(candidates []relationship.Relationship) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Kind() != b.Kind() {
			return a.Kind() < b.Kind()
		}
		if c := compareCoordinate(a.Declaring(), b.Declaring()); c != 0 {
			return c < 0
		}
		if a.Index() != b.Index() {
			return a.Index() < b.Index()
		}
		return compareCoordinate(a.Target(), b.Target()) < 0
	})
}

func compareCoordinate(a, b coordinate.Coordinate) int {
	if a.Group() != b.Group() {
		if a.Group() < b.Group() {
			return -1
		}
		return 1
	}
	if a.Artifact() != b.Artifact() {
		if a.Artifact() < b.Artifact() {
			return -1
		}
		return 1
	}
	return coordinate.Compare(a.Version(), b.Version())
}

func indexOf(seq []graphid.NID, node graphid.NID) int {
	for i, n := range seq {
		if n == node {
			return i
		}
	}
	return -1
}
