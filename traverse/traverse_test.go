package traverse

import (
	"context"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/filter"
	"github.com/bxf12315/depgraph/graphid"
	"github.com/bxf12315/depgraph/pathinfo"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/selector"
	"github.com/bxf12315/depgraph/store"
)

// fakeStore is a minimal, test-only store.Store backed by plain maps; it
// implements only what Engine actually calls. The view, cycle and query
// tests each define their own double, and package memstore is the fuller
// reference implementation.
type fakeStore struct {
	nodes    map[graphid.NID]coordinate.Coordinate
	byCoord  map[coordinate.Coordinate]graphid.NID
	edges    map[graphid.RID]relationship.Relationship
	outgoing map[graphid.NID][]graphid.RID
	incoming map[graphid.NID][]graphid.RID
	seq      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:    map[graphid.NID]coordinate.Coordinate{},
		byCoord:  map[coordinate.Coordinate]graphid.NID{},
		edges:    map[graphid.RID]relationship.Relationship{},
		outgoing: map[graphid.NID][]graphid.RID{},
		incoming: map[graphid.NID][]graphid.RID{},
	}
}

func (s *fakeStore) BeginTx(context.Context) (store.Tx, error) { return nil, nil }

func (s *fakeStore) CreateNode(_ context.Context, _ store.Tx, c coordinate.Coordinate) (graphid.NID, error) {
	if id, ok := s.byCoord[c]; ok {
		return id, nil
	}
	s.seq++
	id := graphid.NID(c.String())
	s.nodes[id] = c
	s.byCoord[c] = id
	return id, nil
}

func (s *fakeStore) addEdge(rel relationship.Relationship) relationship.Relationship {
	declID, _ := s.CreateNode(nil, nil, rel.Declaring())
	tgtID, _ := s.CreateNode(nil, nil, rel.Target())
	s.seq++
	rid := graphid.RID(rel.Declaring().String() + "->" + rel.Target().String())
	rel = rel.WithRID(rid)
	s.edges[rid] = rel
	s.outgoing[declID] = append(s.outgoing[declID], rid)
	s.incoming[tgtID] = append(s.incoming[tgtID], rid)
	return rel
}

func (s *fakeStore) CreateEdge(_ context.Context, _ store.Tx, rel relationship.Relationship) (relationship.Relationship, error) {
	return s.addEdge(rel), nil
}

func (s *fakeStore) NodesByProperty(context.Context, string, string) ([]graphid.NID, error) {
	return nil, nil
}
func (s *fakeStore) EdgesByProperty(context.Context, string, string) ([]graphid.RID, error) {
	return nil, nil
}

func (s *fakeStore) OutgoingEdges(_ context.Context, node graphid.NID, _ store.EdgeFilter) ([]graphid.RID, error) {
	return s.outgoing[node], nil
}

func (s *fakeStore) IncomingEdges(_ context.Context, node graphid.NID, _ store.EdgeFilter) ([]graphid.RID, error) {
	return s.incoming[node], nil
}

func (s *fakeStore) Node(_ context.Context, id graphid.NID) (store.NodeRecord, error) {
	return store.NodeRecord{ID: id, Coordinate: s.nodes[id]}, nil
}

func (s *fakeStore) Edge(_ context.Context, id graphid.RID) (relationship.Relationship, error) {
	return s.edges[id], nil
}

func (s *fakeStore) SetNodeProperty(context.Context, store.Tx, graphid.NID, string, string) error { return nil }
func (s *fakeStore) NodeProperty(context.Context, graphid.NID, string) (string, bool, error) {
	return "", false, nil
}
func (s *fakeStore) RemoveNodeProperty(context.Context, store.Tx, graphid.NID, string) error { return nil }
func (s *fakeStore) SetEdgeProperty(context.Context, store.Tx, graphid.RID, string, string) error { return nil }
func (s *fakeStore) EdgeProperty(context.Context, graphid.RID, string) (string, bool, error) {
	return "", false, nil
}
func (s *fakeStore) RemoveEdgeProperty(context.Context, store.Tx, graphid.RID, string) error { return nil }
func (s *fakeStore) IndexMembers(context.Context, string) ([]graphid.NID, error)             { return nil, nil }
func (s *fakeStore) Query(context.Context, string, ...any) (store.QueryResult, error) {
	return store.QueryResult{}, nil
}
func (s *fakeStore) Close(context.Context) error { return nil }

// recordingVisitor is a minimal Visitor that records every accepted edge
// and every detected cycle, using AcceptAll/PassThrough as its root
// filter/selector.
type recordingVisitor struct {
	accepted []relationship.Relationship
	cycles   []pathinfo.Path
	seen     map[string]bool
}

func newRecordingVisitor() *recordingVisitor {
	return &recordingVisitor{seen: map[string]bool{}}
}

func (v *recordingVisitor) IsEnabledFor(pathinfo.Path) bool { return true }
func (v *recordingVisitor) ShouldAvoidRedundantPaths() bool { return true }
func (v *recordingVisitor) SplicePath(p pathinfo.Path) pathinfo.Path { return p }
func (v *recordingVisitor) SplicePathInfo(pi pathinfo.Info) pathinfo.Info { return pi }
func (v *recordingVisitor) InitializePathInfo(pathinfo.Path) pathinfo.Info {
	return pathinfo.NewInfo(filter.AcceptAll(), selector.PassThrough())
}
func (v *recordingVisitor) HasSeen(p pathinfo.Path, _ pathinfo.Info) bool {
	if v.seen[p.Key()] {
		return true
	}
	v.seen[p.Key()] = true
	return false
}
func (v *recordingVisitor) IncludeChildren(pathinfo.Path, pathinfo.Info, graphid.NID) bool { return true }
func (v *recordingVisitor) IncludingChild(e relationship.Relationship, _ pathinfo.Path, _ pathinfo.Info, _ pathinfo.Path) {
	v.accepted = append(v.accepted, e)
}
func (v *recordingVisitor) CycleDetected(cyclePath pathinfo.Path, _ relationship.Relationship) {
	v.cycles = append(v.cycles, cyclePath)
}
func (v *recordingVisitor) TraverseComplete() {}

func mustCoord(t *testing.T, a string) coordinate.Coordinate {
	t.Helper()
	return coordinate.MustNew("g", a, "1.0", "", "")
}

func TestRunVisitsReachableEdgesBreadthFirst(t *testing.T) {
	s := newFakeStore()
	a, b, c := mustCoord(t, "a"), mustCoord(t, "b"), mustCoord(t, "c")
	ab, _ := relationship.New(relationship.Dependency, a, b, false, true, []string{"u"}, "pom.xml", 0)
	bc, _ := relationship.New(relationship.Dependency, b, c, false, true, []string{"u"}, "pom.xml", 0)
	s.addEdge(ab)
	s.addEdge(bc)

	rootID, _ := s.CreateNode(context.Background(), nil, a)
	v := newRecordingVisitor()
	eng := New(s)
	err := eng.Run(context.Background(), []graphid.NID{rootID}, BreadthFirst, Outgoing, true, false, v)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(v.accepted), 2))
	qt.Assert(t, qt.Equals(v.accepted[0].Target(), b))
	qt.Assert(t, qt.Equals(v.accepted[1].Target(), c))
}

func TestRunDetectsCycleWhenNotAvoiding(t *testing.T) {
	s := newFakeStore()
	a, b := mustCoord(t, "a"), mustCoord(t, "b")
	ab, _ := relationship.New(relationship.Dependency, a, b, false, true, []string{"u"}, "pom.xml", 0)
	ba, _ := relationship.New(relationship.Dependency, b, a, false, true, []string{"u"}, "pom.xml", 0)
	s.addEdge(ab)
	s.addEdge(ba)

	rootID, _ := s.CreateNode(context.Background(), nil, a)
	v := newRecordingVisitor()
	eng := New(s)
	err := eng.Run(context.Background(), []graphid.NID{rootID}, BreadthFirst, Outgoing, false, false, v)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(v.accepted), 1)) // a->b only; b->a reported as a cycle, not expanded
	qt.Assert(t, qt.Equals(len(v.cycles), 1))
}

func TestRunSkipsCyclesInjectedEdgesWhenAvoiding(t *testing.T) {
	s := newFakeStore()
	a, b := mustCoord(t, "a"), mustCoord(t, "b")
	ab, _ := relationship.New(relationship.Dependency, a, b, false, true, []string{"u"}, "pom.xml", 0)
	ba, _ := relationship.New(relationship.Dependency, b, a, false, true, []string{"u"}, "pom.xml", 0)
	s.addEdge(ab)
	baStored := s.addEdge(ba)
	s.edges[baStored.RID()] = baStored.AsCyclesInjected()

	rootID, _ := s.CreateNode(context.Background(), nil, a)
	v := newRecordingVisitor()
	eng := New(s)
	err := eng.Run(context.Background(), []graphid.NID{rootID}, BreadthFirst, Outgoing, true, false, v)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(v.accepted), 1))
	qt.Assert(t, qt.Equals(len(v.cycles), 0))
}

func TestRunNeverFollowsSelectionEdgeOnItsOwn(t *testing.T) {
	s := newFakeStore()
	a, b, c := mustCoord(t, "a"), mustCoord(t, "b"), mustCoord(t, "c")
	ab, _ := relationship.New(relationship.Dependency, a, b, false, true, []string{"u"}, "pom.xml", 0)
	// a selection edge a->c that nothing ever picked via Select()
	sel, _ := relationship.New(relationship.Dependency, a, c, false, true, []string{"u"}, "pom.xml", 1)
	s.addEdge(ab)
	rid := graphid.RID(a.String() + "=>" + c.String())
	s.edges[rid] = sel.AsSelectionEdge().WithRID(rid)
	s.outgoing[graphid.NID(a.String())] = append(s.outgoing[graphid.NID(a.String())], rid)

	rootID, _ := s.CreateNode(context.Background(), nil, a)
	v := newRecordingVisitor()
	eng := New(s)
	err := eng.Run(context.Background(), []graphid.NID{rootID}, BreadthFirst, Outgoing, true, false, v)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(v.accepted), 1))
	qt.Assert(t, qt.Equals(v.accepted[0].Target(), b))
}

// redirectToSelector substitutes every candidate edge's target with a
// fixed coordinate, the way a FirstWin/NearestWins pin would once it
// disagrees with a newly discovered version — used here to exercise the
// engine's rejection of a substitution that loops back to an
// already-visited node on the current Path.
type redirectToSelector struct {
	to coordinate.Coordinate
}

func (r redirectToSelector) Select(e relationship.Relationship, _ pathinfo.Path) (relationship.Relationship, pathinfo.Selector, bool) {
	return e.SelectTarget(r.to).AsSelectionEdge(), r, true
}

type selectingVisitor struct {
	*recordingVisitor
	sel pathinfo.Selector
}

func (v *selectingVisitor) InitializePathInfo(pathinfo.Path) pathinfo.Info {
	return pathinfo.NewInfo(filter.AcceptAll(), v.sel)
}

func TestRunRejectsSelectionEdgeThatWouldIntroduceCycle(t *testing.T) {
	s := newFakeStore()
	a, b := mustCoord(t, "a"), mustCoord(t, "b")
	ab, _ := relationship.New(relationship.Dependency, a, b, false, true, []string{"u"}, "pom.xml", 0)
	s.addEdge(ab)

	rootID, _ := s.CreateNode(context.Background(), nil, a)
	v := &selectingVisitor{recordingVisitor: newRecordingVisitor(), sel: redirectToSelector{to: a}}
	eng := New(s)
	err := eng.Run(context.Background(), []graphid.NID{rootID}, BreadthFirst, Outgoing, true, false, v)
	qt.Assert(t, qt.ErrorMatches(err, ".*selection edge.*cycle.*"))
	qt.Assert(t, qt.IsTrue(store.Is(err, store.SelectionConflict)))
}
