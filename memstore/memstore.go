// Package memstore is the in-memory reference implementation of
// store.Store: a mutex-guarded set of Go maps keyed by graphid.NID/RID,
// with the secondary indices spec.md §6 names kept as map[string]set
// structures maintained incrementally as nodes/edges/properties change.
//
// It plays the role internal/registrytest's fake registry plays for
// cuelang.org/go/internal/mod: the one concrete backing store the core
// (traverse, view, cycle, query) is actually tested and run against,
// without those packages ever depending on it directly — they only ever
// see store.Store.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/graphid"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/store"
)

const (
	indexByGA           = "by-GA"
	indexByGAV          = "by-GAV"
	indexMissingNodes   = "missing-nodes"
	indexVariableNodes  = "variable-nodes"
	indexAllRelationships = "all-relationships"
	indexSelectionRelationships = "selection-relationships"
	indexManagedGA      = "managed-GA"
	indexAllCycles      = "all-cycles"
	metadataIndexPrefix = "per-metadata-key:"

	selectionProperty      = "selection"
	cyclesInjectedProperty = "cycles_injected"
)

type nodeRecord struct {
	coord    coordinate.Coordinate
	props    map[string]string
	outgoing []graphid.RID
	incoming []graphid.RID
}

type edgeRecord struct {
	// base is the relationship as originally committed, with its
	// selection/cycles-injected flags always cleared: those two flags
	// are derived from props at read time (see Edge), the same
	// property-bag convention package cycle's CYCLES_INJECTED marking
	// and package query's selection-edge bookkeeping assume of any Store.
	base      relationship.Relationship
	props     map[string]string
	declaring graphid.NID
	target    graphid.NID
}

// Store is the in-memory store.Store implementation.
//
// Transactions here are bookkeeping only: every mutating method applies
// its change immediately, under Store.mu, regardless of which Tx (if
// any) it was passed — a memTx exists to catch programmer errors
// (double Commit/Abort, use after Abort) and to give callers a real Tx
// value to thread through the interface, not to stage writes for actual
// rollback. See DESIGN.md for why: the Store interface's mutating
// methods return their result synchronously (e.g. CreateNode's NID),
// so a caller can observe a "pending" write within its own transaction
// before committing it — genuine rollback would need MVCC-style
// snapshotting, which nothing in this module's scope requires.
type Store struct {
	mu     sync.RWMutex
	closed bool
	nextTx atomic.Uint64

	nodes   map[graphid.NID]*nodeRecord
	byCoord map[coordinate.Coordinate]graphid.NID

	edges    map[graphid.RID]*edgeRecord
	byEdgeKey map[string]graphid.RID

	byGA      map[coordinate.GA]map[graphid.NID]struct{}
	missing   map[graphid.NID]struct{}
	variable  map[graphid.NID]struct{}
	managedGA map[coordinate.GA]map[graphid.RID]struct{}
	metadata  map[string]map[graphid.NID]struct{}
}

// New constructs an empty in-memory Store.
func New() *Store {
	return &Store{
		nodes:     map[graphid.NID]*nodeRecord{},
		byCoord:   map[coordinate.Coordinate]graphid.NID{},
		edges:     map[graphid.RID]*edgeRecord{},
		byEdgeKey: map[string]graphid.RID{},
		byGA:      map[coordinate.GA]map[graphid.NID]struct{}{},
		missing:   map[graphid.NID]struct{}{},
		variable:  map[graphid.NID]struct{}{},
		managedGA: map[coordinate.GA]map[graphid.RID]struct{}{},
		metadata:  map[string]map[graphid.NID]struct{}{},
	}
}

type memTx struct {
	id   uint64
	done bool
}

func (t *memTx) Commit(context.Context) error {
	if t.done {
		return fmt.Errorf("memstore: tx %d already closed", t.id)
	}
	t.done = true
	return nil
}

func (t *memTx) Abort(context.Context) error {
	if t.done {
		return fmt.Errorf("memstore: tx %d already closed", t.id)
	}
	t.done = true
	return nil
}

// BeginTx starts a transaction handle; see Store's doc comment for what
// "transaction" means here.
func (s *Store) BeginTx(ctx context.Context) (store.Tx, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return &memTx{id: s.nextTx.Add(1)}, nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.NewError(store.StoreClosed, "memstore", nil)
	}
	return nil
}

// CreateNode creates (or returns the existing) node for c. A zero
// Coordinate is rejected as InvalidArgument — the Coordinate type's own
// constructor already guarantees group/artifact/version are non-empty,
// so this is the only structurally possible "malformed coordinate" a
// caller could still hand in (e.g. an unintentionally zero-valued
// variable). See DESIGN.md for why InvalidVersion has no organic trigger
// here.
func (s *Store) CreateNode(ctx context.Context, tx store.Tx, c coordinate.Coordinate) (graphid.NID, error) {
	if c.IsZero() {
		return "", store.NewError(store.InvalidArgument, "memstore.CreateNode", fmt.Errorf("zero coordinate"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", store.NewError(store.StoreClosed, "memstore.CreateNode", nil)
	}
	if id, ok := s.byCoord[c]; ok {
		return id, nil
	}
	id := graphid.NID(uuid.New().String())
	rec := &nodeRecord{coord: c, props: map[string]string{}}
	s.nodes[id] = rec
	s.byCoord[c] = id
	s.missing[id] = struct{}{}

	ga := c.GA()
	if s.byGA[ga] == nil {
		s.byGA[ga] = map[graphid.NID]struct{}{}
	}
	s.byGA[ga][id] = struct{}{}

	if c.IsVariable() {
		s.variable[id] = struct{}{}
	}
	return id, nil
}

// CreateEdge persists rel as a new edge, or returns the existing edge
// idempotently keyed by (declaring, target, kind, index) — the same
// dedup key package query's AddRelationships re-submits already-known
// edges under (e.g. re-running commitEdges for a batch that overlaps a
// prior one), and the one the traversal engine relies on when it
// persists a Selector substitution mid-walk.
func (s *Store) CreateEdge(ctx context.Context, tx store.Tx, rel relationship.Relationship) (relationship.Relationship, error) {
	if rel.Declaring().IsZero() || rel.Target().IsZero() {
		return relationship.Relationship{}, store.NewError(store.InvalidArgument, "memstore.CreateEdge", fmt.Errorf("zero endpoint coordinate"))
	}
	declID, err := s.CreateNode(ctx, tx, rel.Declaring())
	if err != nil {
		return relationship.Relationship{}, err
	}
	tgtID, err := s.CreateNode(ctx, tx, rel.Target())
	if err != nil {
		return relationship.Relationship{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return relationship.Relationship{}, store.NewError(store.StoreClosed, "memstore.CreateEdge", nil)
	}

	// The declaring node now has an outgoing edge of its own: it leaves
	// the missing set regardless of whether this edge already existed.
	delete(s.missing, declID)

	key := edgeKey(rel)
	if rid, ok := s.byEdgeKey[key]; ok {
		existing := s.edges[rid]
		existing.base = existing.base.AddSources(rel.Sources())
		return s.renderEdge(rid), nil
	}

	rid := graphid.RID(uuid.New().String())
	// selection/cycles_injected are stored as properties, not struct
	// fields, so a later RemoveEdgeProperty/SetEdgeProperty actually
	// changes what Edge() returns; seed them from what the caller passed
	// in so a Selector-substituted edge is indexed correctly from birth,
	// and rebuild a clean base relationship with those flags cleared
	// (Relationship has no public way to unset them in place).
	props := map[string]string{}
	if rel.IsSelectionEdge() {
		props[selectionProperty] = "true"
	}
	if rel.CyclesInjected() {
		props[cyclesInjectedProperty] = "true"
	}
	base := cleanBase(rel).WithRID(rid)
	rec := &edgeRecord{base: base, props: props, declaring: declID, target: tgtID}
	s.edges[rid] = rec
	s.byEdgeKey[key] = rid

	s.nodes[declID].outgoing = append(s.nodes[declID].outgoing, rid)
	s.nodes[tgtID].incoming = append(s.nodes[tgtID].incoming, rid)

	if rel.Managed() {
		ga := rel.Target().GA()
		if s.managedGA[ga] == nil {
			s.managedGA[ga] = map[graphid.RID]struct{}{}
		}
		s.managedGA[ga][rid] = struct{}{}
	}

	return s.renderEdge(rid), nil
}

// cleanBase reconstructs rel through the public constructors so the
// returned value carries no selection/cycles-injected flag and no RID,
// regardless of what rel itself was marked with — those two flags are
// memstore's own property-bag concern (see CreateEdge), not something a
// stored base relationship should carry directly.
func cleanBase(rel relationship.Relationship) relationship.Relationship {
	if rel.Kind() == relationship.Dependency {
		base, err := relationship.NewDependency(rel.Scope(), rel.Declaring(), rel.Target(), rel.Managed(), rel.Concrete(), rel.Sources(), rel.PomLocation(), rel.Index())
		if err == nil {
			return base
		}
	}
	base, err := relationship.New(rel.Kind(), rel.Declaring(), rel.Target(), rel.Managed(), rel.Concrete(), rel.Sources(), rel.PomLocation(), rel.Index())
	if err != nil {
		// rel was already a validly constructed Relationship, so New
		// cannot fail on its own fields; fall back to rel itself rather
		// than losing the edge.
		return rel
	}
	return base
}

func edgeKey(rel relationship.Relationship) string {
	return fmt.Sprintf("%s->%s#%d#%d", rel.Declaring().String(), rel.Target().String(), int(rel.Kind()), rel.Index())
}

// renderEdge applies rec's current property overrides on top of its base
// relationship; callers must hold s.mu.
func (s *Store) renderEdge(rid graphid.RID) relationship.Relationship {
	rec := s.edges[rid]
	rel := rec.base
	if rec.props[selectionProperty] == "true" {
		rel = rel.AsSelectionEdge()
	}
	if rec.props[cyclesInjectedProperty] == "true" {
		rel = rel.AsCyclesInjected()
	}
	return rel
}

// NodesByProperty supports the "by-GA" (key: GA.String()) and "by-GAV"
// (key: Coordinate.String()) indices.
func (s *Store) NodesByProperty(ctx context.Context, index string, key string) ([]graphid.NID, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch index {
	case indexByGA:
		var out []graphid.NID
		for ga, members := range s.byGA {
			if ga.String() != key {
				continue
			}
			for n := range members {
				out = append(out, n)
			}
		}
		sortNIDs(out)
		return out, nil
	case indexByGAV:
		for c, id := range s.byCoord {
			if c.String() == key {
				return []graphid.NID{id}, nil
			}
		}
		return nil, nil
	default:
		return nil, nil
	}
}

// EdgesByProperty supports "selection-relationships" (key "true"),
// "all-relationships" (key ignored), and "managed-GA" (key: GA.String()).
func (s *Store) EdgesByProperty(ctx context.Context, index string, key string) ([]graphid.RID, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch index {
	case indexSelectionRelationships:
		var out []graphid.RID
		for rid, rec := range s.edges {
			if rec.props[selectionProperty] == "true" {
				out = append(out, rid)
			}
		}
		sortRIDs(out)
		return out, nil
	case indexAllRelationships:
		out := make([]graphid.RID, 0, len(s.edges))
		for rid := range s.edges {
			out = append(out, rid)
		}
		sortRIDs(out)
		return out, nil
	case indexManagedGA:
		var out []graphid.RID
		for ga, members := range s.managedGA {
			if ga.String() != key {
				continue
			}
			for rid := range members {
				out = append(out, rid)
			}
		}
		sortRIDs(out)
		return out, nil
	default:
		return nil, nil
	}
}

// OutgoingEdges returns node's outgoing edges, restricted to filter's
// kind set if non-empty.
func (s *Store) OutgoingEdges(ctx context.Context, node graphid.NID, filter store.EdgeFilter) ([]graphid.RID, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.nodes[node]
	if !ok {
		return nil, nil
	}
	return s.filterEdges(rec.outgoing, filter), nil
}

// IncomingEdges returns node's incoming edges, restricted the same way.
func (s *Store) IncomingEdges(ctx context.Context, node graphid.NID, filter store.EdgeFilter) ([]graphid.RID, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.nodes[node]
	if !ok {
		return nil, nil
	}
	return s.filterEdges(rec.incoming, filter), nil
}

func (s *Store) filterEdges(rids []graphid.RID, f store.EdgeFilter) []graphid.RID {
	if len(f.Kinds) == 0 {
		return append([]graphid.RID(nil), rids...)
	}
	want := make(map[relationship.Kind]bool, len(f.Kinds))
	for _, k := range f.Kinds {
		want[k] = true
	}
	out := make([]graphid.RID, 0, len(rids))
	for _, rid := range rids {
		if want[s.edges[rid].base.Kind()] {
			out = append(out, rid)
		}
	}
	return out
}

// Node returns the persisted record for id.
func (s *Store) Node(ctx context.Context, id graphid.NID) (store.NodeRecord, error) {
	if err := s.checkOpen(); err != nil {
		return store.NodeRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.nodes[id]
	if !ok {
		return store.NodeRecord{}, store.NewError(store.InvalidArgument, "memstore.Node", fmt.Errorf("unknown node %q", id))
	}
	meta := make(map[string]string, len(rec.props))
	for k, v := range rec.props {
		meta[k] = v
	}
	return store.NodeRecord{
		ID:         id,
		Coordinate: rec.coord,
		Variable:   rec.coord.IsVariable(),
		Connected:  len(rec.outgoing) > 0,
		Metadata:   meta,
	}, nil
}

// Edge returns the persisted relationship for id.
func (s *Store) Edge(ctx context.Context, id graphid.RID) (relationship.Relationship, error) {
	if err := s.checkOpen(); err != nil {
		return relationship.Relationship{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.edges[id]; !ok {
		return relationship.Relationship{}, store.NewError(store.InvalidArgument, "memstore.Edge", fmt.Errorf("unknown edge %q", id))
	}
	return s.renderEdge(id), nil
}

// SetNodeProperty sets a free-form property on node, maintaining the
// per-metadata-key index for any "meta:"-prefixed key (package query's
// convention).
func (s *Store) SetNodeProperty(ctx context.Context, tx store.Tx, node graphid.NID, key, value string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.nodes[node]
	if !ok {
		return store.NewError(store.InvalidArgument, "memstore.SetNodeProperty", fmt.Errorf("unknown node %q", node))
	}
	rec.props[key] = value
	if mk, ok := metadataKey(key); ok {
		if s.metadata[mk] == nil {
			s.metadata[mk] = map[graphid.NID]struct{}{}
		}
		s.metadata[mk][node] = struct{}{}
	}
	return nil
}

// NodeProperty gets a free-form property on node.
func (s *Store) NodeProperty(ctx context.Context, node graphid.NID, key string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.nodes[node]
	if !ok {
		return "", false, store.NewError(store.InvalidArgument, "memstore.NodeProperty", fmt.Errorf("unknown node %q", node))
	}
	v, ok := rec.props[key]
	return v, ok, nil
}

// RemoveNodeProperty removes a free-form property from node.
func (s *Store) RemoveNodeProperty(ctx context.Context, tx store.Tx, node graphid.NID, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.nodes[node]
	if !ok {
		return store.NewError(store.InvalidArgument, "memstore.RemoveNodeProperty", fmt.Errorf("unknown node %q", node))
	}
	delete(rec.props, key)
	if mk, ok := metadataKey(key); ok {
		delete(s.metadata[mk], node)
	}
	return nil
}

// SetEdgeProperty sets a free-form property on edge. Setting
// "selection"/"cycles_injected" changes what Edge subsequently renders.
func (s *Store) SetEdgeProperty(ctx context.Context, tx store.Tx, edge graphid.RID, key, value string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.edges[edge]
	if !ok {
		return store.NewError(store.InvalidArgument, "memstore.SetEdgeProperty", fmt.Errorf("unknown edge %q", edge))
	}
	rec.props[key] = value
	return nil
}

// EdgeProperty gets a free-form property on edge.
func (s *Store) EdgeProperty(ctx context.Context, edge graphid.RID, key string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.edges[edge]
	if !ok {
		return "", false, store.NewError(store.InvalidArgument, "memstore.EdgeProperty", fmt.Errorf("unknown edge %q", edge))
	}
	v, ok := rec.props[key]
	return v, ok, nil
}

// RemoveEdgeProperty removes a free-form property from edge.
func (s *Store) RemoveEdgeProperty(ctx context.Context, tx store.Tx, edge graphid.RID, key string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.edges[edge]
	if !ok {
		return store.NewError(store.InvalidArgument, "memstore.RemoveEdgeProperty", fmt.Errorf("unknown edge %q", edge))
	}
	delete(rec.props, key)
	return nil
}

// IndexMembers enumerates "missing-nodes", "variable-nodes", and any
// "per-metadata-key:"+key index.
func (s *Store) IndexMembers(ctx context.Context, index string) ([]graphid.NID, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case index == indexMissingNodes:
		return setToSortedNIDs(s.missing), nil
	case index == indexVariableNodes:
		return setToSortedNIDs(s.variable), nil
	case len(index) > len(metadataIndexPrefix) && index[:len(metadataIndexPrefix)] == metadataIndexPrefix:
		key := index[len(metadataIndexPrefix):]
		return setToSortedNIDs(s.metadata[key]), nil
	default:
		return nil, nil
	}
}

// Query is unsupported: memstore has no declarative query execution
// layer, only the structured operations above.
func (s *Store) Query(ctx context.Context, query string, args ...any) (store.QueryResult, error) {
	if err := s.checkOpen(); err != nil {
		return store.QueryResult{}, err
	}
	return store.QueryResult{}, store.NewError(store.InvalidArgument, "memstore.Query", fmt.Errorf("declarative queries are not supported"))
}

// Close marks the store closed; every subsequent call returns a
// StoreClosed error.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.NewError(store.StoreClosed, "memstore.Close", nil)
	}
	s.closed = true
	return nil
}

func metadataKey(propKey string) (string, bool) {
	const p = "meta:"
	if len(propKey) > len(p) && propKey[:len(p)] == p {
		return propKey[len(p):], true
	}
	return "", false
}

func setToSortedNIDs(set map[graphid.NID]struct{}) []graphid.NID {
	out := make([]graphid.NID, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sortNIDs(out)
	return out
}

func sortNIDs(ids []graphid.NID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortRIDs(ids []graphid.RID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
