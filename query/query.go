// Package query implements spec.md §4.8's Query API: the single entry
// point wiring store, view, traverse and cycle together behind a
// single-writer mutating discipline (spec.md §5) and a small set of
// observable operations over a registered view.
//
// Engine is grounded on modrequirements.Requirements's role as the
// orchestrating type callers actually hold and call methods on, with its
// single-writer discipline generalized into an explicit sync.RWMutex held
// for the duration of every mutating call, rather than the teacher's
// narrower per-field atomic-pointer swaps.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kr/pretty"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/cycle"
	"github.com/bxf12315/depgraph/graphid"
	"github.com/bxf12315/depgraph/internal/graphdebug"
	"github.com/bxf12315/depgraph/internal/par"
	"github.com/bxf12315/depgraph/pathinfo"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/selector"
	"github.com/bxf12315/depgraph/store"
	"github.com/bxf12315/depgraph/traverse"
	"github.com/bxf12315/depgraph/view"
)

// metadataKeyPrefix namespaces free-form metadata properties within a
// node's generic property bag, so GetMetadata/AddMetadata/SetMetadata
// never collide with the canonical per-node properties (coordinate,
// variable flag, connected flag) spec.md §6 also stores there.
const metadataKeyPrefix = "meta:"

// metadataIndexName is the per-metadata-key secondary index spec.md §6
// requires ("per-metadata-key"): a Store implementation is expected to
// maintain, for each distinct key ever passed to SetNodeProperty with the
// metadataKeyPrefix prefix, an index of this name listing every node that
// currently has that key set.
func metadataIndexName(key string) string { return "per-metadata-key:" + key }

// selectionEdgesIndex is the "selection-relationships" secondary index
// spec.md §6 names, used by Shutdown to find every per-session selection
// edge across every view.
const selectionEdgesIndex = "selection-relationships"

// Engine is the Query API's single entry point: one Store, one shared
// traversal Engine, a registry of named Views, and a lazy per-view cycle
// Detector, all guarded by a single-writer lock per spec.md §5 ("All
// mutating operations... are serialized by a coarse process-wide lock
// around the store transaction. Read operations may execute
// concurrently").
type Engine struct {
	store   store.Store
	engine  *traverse.Engine
	cycle   *cycle.Detector
	logger  *slog.Logger
	debug   graphdebug.Flags

	mu    sync.RWMutex
	views map[string]*viewEntry
}

type viewEntry struct {
	view *view.View
	// lastAccess is an atomic.Int64 (UnixNano) rather than a plain
	// time.Time so read-only query paths, which only hold Engine.mu for
	// reading, can still record the "last-access timestamp" spec.md §4.8
	// asks every view to carry without promoting themselves to a writer.
	lastAccess atomic.Int64
}

func (e *viewEntry) touch() { e.lastAccess.Store(time.Now().UnixNano()) }

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the Engine's diagnostic logger (default
// slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithDebugFlags overrides the Engine's debug/config toggles (default:
// graphdebug.Init()'s parse of DEPGRAPH_DEBUG).
func WithDebugFlags(f graphdebug.Flags) Option {
	return func(e *Engine) { e.debug = f }
}

// New constructs an Engine over s.
func New(s store.Store, opts ...Option) *Engine {
	eng := traverse.New(s)
	flags, err := graphdebug.Init()
	if err != nil {
		flags = graphdebug.Flags{}
	}
	e := &Engine{
		store:  s,
		engine: eng,
		cycle:  cycle.New(s, eng),
		logger: slog.Default(),
		debug:  flags,
		views:  map[string]*viewEntry{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterView materializes and registers a new view, returning it keyed
// by its deterministic short-id.
func (e *Engine) RegisterView(ctx context.Context, cfg view.Config) (*view.View, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, err := view.Register(ctx, e.store, e.engine, cfg)
	if err != nil {
		return nil, err
	}
	entry := &viewEntry{view: v}
	entry.touch()
	e.views[v.ShortID()] = entry
	if e.debug.LogTraversal {
		e.logger.DebugContext(ctx, "view materialized", "view", v.ShortID(), "nodes", len(v.Cache().Nodes()), "edges", len(v.Cache().Edges()),
			"config", fmt.Sprintf("%# v", pretty.Formatter(cfg)))
	}
	e.logger.InfoContext(ctx, "registered view", "view", v.ShortID(), "roots", len(cfg.Roots))
	return v, nil
}

// RegisterViewSelection is spec.md §4.8's register_view_selection: pin ga
// to version for viewID (forcing the view's selector, if it carries
// pinnable state, to substitute any other version of ga with a selection
// edge to version) and re-materialize the view's cache around the pin.
func (e *Engine) RegisterViewSelection(ctx context.Context, viewID string, ga coordinate.GA, version string) error {
	target, err := coordinate.New(ga.Group, ga.Artifact, version, "", "")
	if err != nil {
		return store.NewError(store.InvalidArgument, "query.RegisterViewSelection", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.views[viewID]
	if !ok {
		return unknownView(viewID)
	}
	if pinner, ok := entry.view.Config().Selector.(selector.Pinner); ok {
		pinner.Pin(ga, target)
		if e.debug.LogSelection {
			e.logger.InfoContext(ctx, "selection pinned", "view", viewID, "group", ga.Group, "artifact", ga.Artifact, "version", version)
		}
	}
	entry.touch()
	return entry.view.RegisterSelection(ctx, ga)
}

// AddRelationships is spec.md §4.8's add_relationships: it persists edges
// and re-materializes every registered view whose cache may now be stale.
// Per the preserved Open Question decision, the returned rejected set is
// always empty — a node-creation failure (InvalidVersion) within the
// batch is logged and that one edge is dropped, not surfaced as a reject;
// a transaction failure aborts the whole batch and is returned as an
// error instead.
//
// Declaring/target coordinates across the whole batch are pre-resolved to
// node identifiers concurrently, via internal/par, before the
// single-writer lock is acquired — read-only CreateNode calls for
// coordinates the store has already seen are cheap and safe to run in
// parallel; only the edge-creation transaction itself needs serializing.
func (e *Engine) AddRelationships(ctx context.Context, edges []relationship.Relationship) ([]relationship.Relationship, error) {
	if len(edges) == 0 {
		return nil, nil
	}

	edges, err := e.preResolveCoordinates(ctx, edges)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	committed, err := e.commitEdges(ctx, edges)
	if err != nil {
		return nil, err
	}

	for id, entry := range e.views {
		if err := entry.view.AddRelationships(ctx, committed); err != nil {
			return nil, err
		}
		if e.debug.LogTraversal {
			e.logger.DebugContext(ctx, "view re-materialization checked", "view", id, "added", len(committed))
		}
	}
	return nil, nil
}

func (e *Engine) preResolveCoordinates(ctx context.Context, edges []relationship.Relationship) ([]relationship.Relationship, error) {
	cache := par.NewErrCache[coordinate.Coordinate, graphid.NID]()
	q := par.NewQueue(fanOutWidth(len(edges)))
	seen := make(map[coordinate.Coordinate]struct{}, len(edges)*2)
	var invalidMu sync.Mutex
	invalid := make(map[coordinate.Coordinate]bool)
	schedule := func(c coordinate.Coordinate) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		q.Do(func() error {
			_, err := cache.Do(c, func() (graphid.NID, error) {
				return e.store.CreateNode(ctx, nil, c)
			})
			if store.Is(err, store.InvalidVersion) {
				invalidMu.Lock()
				invalid[c] = true
				invalidMu.Unlock()
				return nil
			}
			return err
		})
	}
	for _, rel := range edges {
		schedule(rel.Declaring())
		schedule(rel.Target())
	}
	if err := q.Wait(); err != nil {
		return nil, store.NewError(store.DriverFailure, "query.AddRelationships", err)
	}
	kept := make([]relationship.Relationship, 0, len(edges))
	for _, rel := range edges {
		if invalid[rel.Declaring()] || invalid[rel.Target()] {
			e.logger.WarnContext(ctx, "dropping edge with invalid version",
				"declaring", rel.Declaring().String(), "target", rel.Target().String())
			continue
		}
		kept = append(kept, rel)
	}
	return kept, nil
}

func (e *Engine) commitEdges(ctx context.Context, edges []relationship.Relationship) ([]relationship.Relationship, error) {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return nil, store.NewError(store.DriverFailure, "query.AddRelationships", err)
	}
	committed := make([]relationship.Relationship, 0, len(edges))
	for _, rel := range edges {
		created, err := e.store.CreateEdge(ctx, tx, rel)
		if err != nil {
			if store.Is(err, store.InvalidVersion) {
				e.logger.WarnContext(ctx, "dropping edge with invalid version",
					"declaring", rel.Declaring().String(), "target", rel.Target().String(), "error", err)
				continue
			}
			abortTx(ctx, tx)
			return nil, store.NewError(store.DriverFailure, "query.AddRelationships", err)
		}
		committed = append(committed, created)
	}
	if err := commitTx(ctx, tx); err != nil {
		return nil, store.NewError(store.DriverFailure, "query.AddRelationships", err)
	}
	return committed, nil
}

func fanOutWidth(n int) int {
	const max = 8
	switch {
	case n < 1:
		return 1
	case n > max:
		return max
	default:
		return n
	}
}

func commitTx(ctx context.Context, tx store.Tx) error {
	if tx == nil {
		return nil
	}
	return tx.Commit(ctx)
}

func abortTx(ctx context.Context, tx store.Tx) {
	if tx == nil {
		return
	}
	_ = tx.Abort(ctx)
}

// IntroducesCycle is spec.md §4.8's introduces_cycle: true iff some
// cached path of viewID ending at edge.Declaring() already passes through
// edge.Target() — i.e. committing edge would close a cycle back to a node
// already on a path leading to its own declaring node.
func (e *Engine) IntroducesCycle(ctx context.Context, viewID string, edge relationship.Relationship) (bool, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return false, err
	}
	declNode, err := e.store.CreateNode(ctx, nil, edge.Declaring())
	if err != nil {
		return false, store.NewError(store.DriverFailure, "query.IntroducesCycle", err)
	}
	targetNode, err := e.store.CreateNode(ctx, nil, edge.Target())
	if err != nil {
		return false, store.NewError(store.DriverFailure, "query.IntroducesCycle", err)
	}
	for _, p := range v.Cache().PathsTargeting(declNode) {
		if p.IsEmpty() {
			if declNode == targetNode {
				return true, nil
			}
			continue
		}
		nodes, err := e.pathNodes(ctx, p)
		if err != nil {
			return false, err
		}
		for _, n := range nodes {
			if n == targetNode {
				return true, nil
			}
		}
	}
	return false, nil
}

// pathNodes reconstructs the node sequence a (possibly empty) Path
// touches by walking its RID chain, the same resolution viewUpdater and
// cycle.Detector use: an edge's Declaring coordinate is always its
// predecessor's Target, so the chain determines the sequence
// deterministically without a dedicated node-sequence cache.
func (e *Engine) pathNodes(ctx context.Context, p pathinfo.Path) ([]graphid.NID, error) {
	rids := p.RIDs()
	if len(rids) == 0 {
		return nil, nil
	}
	first, err := e.store.Edge(ctx, rids[0])
	if err != nil {
		return nil, store.NewError(store.DriverFailure, "query.pathNodes", err)
	}
	root, err := e.store.CreateNode(ctx, nil, first.Declaring())
	if err != nil {
		return nil, store.NewError(store.DriverFailure, "query.pathNodes", err)
	}
	nodes := make([]graphid.NID, 0, len(rids)+1)
	nodes = append(nodes, root)
	for i, rid := range rids {
		rel := first
		if i > 0 {
			rel, err = e.store.Edge(ctx, rid)
			if err != nil {
				return nil, store.NewError(store.DriverFailure, "query.pathNodes", err)
			}
			if e.debug.Strict {
				declNode, err := e.store.CreateNode(ctx, nil, rel.Declaring())
				if err != nil {
					return nil, store.NewError(store.DriverFailure, "query.pathNodes", err)
				}
				if declNode != nodes[len(nodes)-1] {
					return nil, store.NewError(store.DriverFailure, "query.pathNodes",
						fmt.Errorf("path %v: edge %d's declaring node does not chain from its predecessor's target", rids, i))
				}
			}
		}
		n, err := e.store.CreateNode(ctx, nil, rel.Target())
		if err != nil {
			return nil, store.NewError(store.DriverFailure, "query.pathNodes", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// AllProjects is spec.md §4.8's all_projects: every coordinate cached as
// a node of viewID.
func (e *Engine) AllProjects(ctx context.Context, viewID string) ([]coordinate.Coordinate, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	return e.coordinatesInView(ctx, v, v.Cache().Nodes())
}

// AllEdges is spec.md §4.8's all_edges: every relationship crossed by at
// least one cached path of viewID, in a deterministic order.
func (e *Engine) AllEdges(ctx context.Context, viewID string) ([]relationship.Relationship, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	rids := v.Cache().Edges()
	out := make([]relationship.Relationship, 0, len(rids))
	for _, rid := range rids {
		rel, err := e.store.Edge(ctx, rid)
		if err != nil {
			return nil, store.NewError(store.DriverFailure, "query.AllEdges", err)
		}
		out = append(out, rel)
	}
	sortRelationships(out)
	return out, nil
}

func sortRelationships(rels []relationship.Relationship) {
	sort.Slice(rels, func(i, j int) bool {
		a, b := rels[i], rels[j]
		if a.Kind() != b.Kind() {
			return a.Kind() < b.Kind()
		}
		if da, db := a.Declaring().String(), b.Declaring().String(); da != db {
			return da < db
		}
		if a.Index() != b.Index() {
			return a.Index() < b.Index()
		}
		return a.Target().String() < b.Target().String()
	})
}

// DirectFrom is spec.md §4.8's direct_from: the outgoing edges of c
// within viewID, restricted to types (all kinds if empty) and the
// include_managed/include_concrete toggles.
func (e *Engine) DirectFrom(ctx context.Context, viewID string, c coordinate.Coordinate, includeManaged, includeConcrete bool, types ...relationship.Kind) ([]relationship.Relationship, error) {
	return e.directEdges(ctx, viewID, c, true, includeManaged, includeConcrete, types)
}

// DirectTo is spec.md §4.8's direct_to: the incoming edges of c within
// viewID, restricted the same way as DirectFrom.
func (e *Engine) DirectTo(ctx context.Context, viewID string, c coordinate.Coordinate, includeManaged, includeConcrete bool, types ...relationship.Kind) ([]relationship.Relationship, error) {
	return e.directEdges(ctx, viewID, c, false, includeManaged, includeConcrete, types)
}

func (e *Engine) directEdges(ctx context.Context, viewID string, c coordinate.Coordinate, outgoing, includeManaged, includeConcrete bool, types []relationship.Kind) ([]relationship.Relationship, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	node, err := e.store.CreateNode(ctx, nil, c)
	if err != nil {
		return nil, store.NewError(store.DriverFailure, "query.direct", err)
	}
	ef := store.EdgeFilter{Kinds: types}
	var rids []graphid.RID
	if outgoing {
		rids, err = e.store.OutgoingEdges(ctx, node, ef)
	} else {
		rids, err = e.store.IncomingEdges(ctx, node, ef)
	}
	if err != nil {
		return nil, store.NewError(store.DriverFailure, "query.direct", err)
	}

	cfg := v.Config()
	rootInfo := pathinfo.NewInfo(cfg.Filter, cfg.Selector)
	out := make([]relationship.Relationship, 0, len(rids))
	for _, rid := range rids {
		rel, err := e.store.Edge(ctx, rid)
		if err != nil {
			return nil, store.NewError(store.DriverFailure, "query.direct", err)
		}
		// Selection edges are never followed (or surfaced) on their own
		// merit; see the selection-edge rule in package traverse.
		if rel.IsSelectionEdge() {
			continue
		}
		if rel.Managed() && !includeManaged {
			continue
		}
		if rel.Concrete() && !includeConcrete {
			continue
		}
		if _, ok := cfg.Filter.Accept(rel, pathinfo.Empty(), rootInfo); !ok {
			continue
		}
		out = append(out, rel)
	}
	sortRelationships(out)
	return out, nil
}

// AllPathsTo is spec.md §4.8's all_paths_to: every cached path of viewID
// terminating at c.
func (e *Engine) AllPathsTo(ctx context.Context, viewID string, c coordinate.Coordinate) ([]pathinfo.Path, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	node, err := e.store.CreateNode(ctx, nil, c)
	if err != nil {
		return nil, store.NewError(store.DriverFailure, "query.AllPathsTo", err)
	}
	return v.Cache().PathsTargeting(node), nil
}

// PathMapTargeting is spec.md §4.8's path_map_targeting: AllPathsTo for a
// whole set of coordinates at once.
func (e *Engine) PathMapTargeting(ctx context.Context, viewID string, cs []coordinate.Coordinate) (map[coordinate.Coordinate][]pathinfo.Path, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	out := make(map[coordinate.Coordinate][]pathinfo.Path, len(cs))
	for _, c := range cs {
		node, err := e.store.CreateNode(ctx, nil, c)
		if err != nil {
			return nil, store.NewError(store.DriverFailure, "query.PathMapTargeting", err)
		}
		out[c] = v.Cache().PathsTargeting(node)
	}
	return out, nil
}

// MissingProjects is spec.md §4.8's missing_projects: the store-wide
// missing-node set intersected with viewID's cached Nodes.
func (e *Engine) MissingProjects(ctx context.Context, viewID string) ([]coordinate.Coordinate, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	members, err := e.store.IndexMembers(ctx, "missing-nodes")
	if err != nil {
		return nil, store.NewError(store.DriverFailure, "query.MissingProjects", err)
	}
	return e.coordinatesInView(ctx, v, members)
}

// VariableProjects is spec.md §4.8's variable_projects: the store-wide
// variable-node set intersected with viewID's cached Nodes.
func (e *Engine) VariableProjects(ctx context.Context, viewID string) ([]coordinate.Coordinate, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	members, err := e.store.IndexMembers(ctx, "variable-nodes")
	if err != nil {
		return nil, store.NewError(store.DriverFailure, "query.VariableProjects", err)
	}
	return e.coordinatesInView(ctx, v, members)
}

// GetMetadata is spec.md §4.8's get_metadata: the value of each requested
// key on c's node. The store interface here has no way to enumerate an
// unbounded generic property bag, so unlike the original, an empty keys
// list returns an empty map rather than "every key" — callers that need
// the full metadata set must track their own key list (e.g. via
// ProjectsWithMetadata's per-key index) or request known keys explicitly.
func (e *Engine) GetMetadata(ctx context.Context, c coordinate.Coordinate, keys ...string) (map[string]string, error) {
	node, err := e.store.CreateNode(ctx, nil, c)
	if err != nil {
		return nil, store.NewError(store.DriverFailure, "query.GetMetadata", err)
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok, err := e.store.NodeProperty(ctx, node, metadataKeyPrefix+k)
		if err != nil {
			return nil, store.NewError(store.DriverFailure, "query.GetMetadata", err)
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}

// AddMetadata is spec.md §4.8's add_metadata: sets key on c only if it
// isn't already set, leaving an existing value untouched.
func (e *Engine) AddMetadata(ctx context.Context, c coordinate.Coordinate, key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	node, err := e.store.CreateNode(ctx, nil, c)
	if err != nil {
		return store.NewError(store.DriverFailure, "query.AddMetadata", err)
	}
	_, ok, err := e.store.NodeProperty(ctx, node, metadataKeyPrefix+key)
	if err != nil {
		return store.NewError(store.DriverFailure, "query.AddMetadata", err)
	}
	if ok {
		return nil
	}
	return e.setMetadataLocked(ctx, node, key, value)
}

// SetMetadata is spec.md §4.8's set_metadata: unconditionally overwrites
// key on c.
func (e *Engine) SetMetadata(ctx context.Context, c coordinate.Coordinate, key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	node, err := e.store.CreateNode(ctx, nil, c)
	if err != nil {
		return store.NewError(store.DriverFailure, "query.SetMetadata", err)
	}
	return e.setMetadataLocked(ctx, node, key, value)
}

func (e *Engine) setMetadataLocked(ctx context.Context, node graphid.NID, key, value string) error {
	tx, err := e.store.BeginTx(ctx)
	if err != nil {
		return store.NewError(store.DriverFailure, "query.setMetadata", err)
	}
	if err := e.store.SetNodeProperty(ctx, tx, node, metadataKeyPrefix+key, value); err != nil {
		abortTx(ctx, tx)
		return store.NewError(store.DriverFailure, "query.setMetadata", err)
	}
	if err := commitTx(ctx, tx); err != nil {
		return store.NewError(store.DriverFailure, "query.setMetadata", err)
	}
	return nil
}

// ProjectsWithMetadata is spec.md §4.8's projects_with_metadata: the
// per-key metadata index intersected with viewID's cached Nodes.
func (e *Engine) ProjectsWithMetadata(ctx context.Context, viewID, key string) ([]coordinate.Coordinate, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	members, err := e.store.IndexMembers(ctx, metadataIndexName(key))
	if err != nil {
		return nil, store.NewError(store.DriverFailure, "query.ProjectsWithMetadata", err)
	}
	return e.coordinatesInView(ctx, v, members)
}

// ActiveSourceURIs returns viewID's configured source URIs.
func (e *Engine) ActiveSourceURIs(viewID string) ([]string, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.Config().SourceURIs...), nil
}

// ActivePOMLocations returns viewID's configured POM locations.
func (e *Engine) ActivePOMLocations(viewID string) ([]string, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.Config().POMLocations...), nil
}

// ViewProperties returns a copy of viewID's free-form configuration
// properties.
func (e *Engine) ViewProperties(viewID string) (map[string]string, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(v.Config().Properties))
	for k, val := range v.Config().Properties {
		out[k] = val
	}
	return out, nil
}

// LastAccess returns the time viewID was last looked up by any query
// operation. LastAccess itself does not update that time.
func (e *Engine) LastAccess(viewID string) (time.Time, error) {
	e.mu.RLock()
	entry, ok := e.views[viewID]
	e.mu.RUnlock()
	if !ok {
		return time.Time{}, unknownView(viewID)
	}
	return time.Unix(0, entry.lastAccess.Load()), nil
}

// GetCycles is spec.md §4.7/§4.8's get_cycles, exposed through the Query
// API's entry point rather than requiring callers to hold a
// *cycle.Detector themselves.
func (e *Engine) GetCycles(ctx context.Context, viewID string) ([]cycle.Cycle, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return nil, err
	}
	return e.cycle.GetCycles(ctx, v)
}

// IsCycleParticipant is spec.md §4.7/§4.8's is_cycle_participant.
func (e *Engine) IsCycleParticipant(ctx context.Context, viewID string, c coordinate.Coordinate) (bool, error) {
	v, err := e.resolveView(viewID)
	if err != nil {
		return false, err
	}
	node, err := e.store.CreateNode(ctx, nil, c)
	if err != nil {
		return false, store.NewError(store.DriverFailure, "query.IsCycleParticipant", err)
	}
	return e.cycle.IsCycleParticipant(ctx, v, node)
}

// Shutdown is spec.md §5's shutdown hook. The store interface exposed to
// the core has no delete-edge primitive, so "removes all selection-edges"
// is implemented as best-effort un-marking (clearing each selection
// edge's flag via RemoveEdgeProperty) rather than deletion; a per-session
// selection edge left behind this way is inert, never reachable as a
// traversal candidate in a fresh process. See DESIGN.md.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	rids, err := e.store.EdgesByProperty(ctx, selectionEdgesIndex, "true")
	if err != nil {
		return store.NewError(store.DriverFailure, "query.Shutdown", err)
	}
	if len(rids) > 0 {
		tx, err := e.store.BeginTx(ctx)
		if err != nil {
			return store.NewError(store.DriverFailure, "query.Shutdown", err)
		}
		for _, rid := range rids {
			if err := e.store.RemoveEdgeProperty(ctx, tx, rid, "selection"); err != nil {
				abortTx(ctx, tx)
				return store.NewError(store.DriverFailure, "query.Shutdown", err)
			}
		}
		if err := commitTx(ctx, tx); err != nil {
			return store.NewError(store.DriverFailure, "query.Shutdown", err)
		}
	}
	return e.store.Close(ctx)
}

func (e *Engine) resolveView(viewID string) (*view.View, error) {
	e.mu.RLock()
	entry, ok := e.views[viewID]
	e.mu.RUnlock()
	if !ok {
		return nil, unknownView(viewID)
	}
	entry.touch()
	return entry.view, nil
}

func (e *Engine) coordinatesInView(ctx context.Context, v *view.View, nodes []graphid.NID) ([]coordinate.Coordinate, error) {
	out := make([]coordinate.Coordinate, 0, len(nodes))
	for _, n := range nodes {
		if !v.Cache().ContainsNode(n) {
			continue
		}
		rec, err := e.store.Node(ctx, n)
		if err != nil {
			return nil, store.NewError(store.DriverFailure, "query.coordinatesInView", err)
		}
		out = append(out, rec.Coordinate)
	}
	coordinate.Sort(out)
	return out, nil
}

func unknownView(viewID string) error {
	return store.NewError(store.InvalidArgument, "query.resolveView", fmt.Errorf("unknown view %q", viewID))
}
