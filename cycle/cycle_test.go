package cycle

import (
	"context"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/graphid"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/store"
	"github.com/bxf12315/depgraph/traverse"
	"github.com/bxf12315/depgraph/view"
)

type fakeStore struct {
	nodes      map[graphid.NID]coordinate.Coordinate
	byCoord    map[coordinate.Coordinate]graphid.NID
	edges      map[graphid.RID]relationship.Relationship
	outgoing   map[graphid.NID][]graphid.RID
	edgeProps  map[graphid.RID]map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:     map[graphid.NID]coordinate.Coordinate{},
		byCoord:   map[coordinate.Coordinate]graphid.NID{},
		edges:     map[graphid.RID]relationship.Relationship{},
		outgoing:  map[graphid.NID][]graphid.RID{},
		edgeProps: map[graphid.RID]map[string]string{},
	}
}

func (s *fakeStore) BeginTx(context.Context) (store.Tx, error) { return nil, nil }

func (s *fakeStore) CreateNode(_ context.Context, _ store.Tx, c coordinate.Coordinate) (graphid.NID, error) {
	if id, ok := s.byCoord[c]; ok {
		return id, nil
	}
	id := graphid.NID(c.String())
	s.nodes[id] = c
	s.byCoord[c] = id
	return id, nil
}

func (s *fakeStore) addEdge(rel relationship.Relationship) relationship.Relationship {
	declID, _ := s.CreateNode(nil, nil, rel.Declaring())
	_, _ = s.CreateNode(nil, nil, rel.Target())
	rid := graphid.RID(rel.Declaring().String() + "->" + rel.Target().String())
	rel = rel.WithRID(rid)
	s.edges[rid] = rel
	s.outgoing[declID] = append(s.outgoing[declID], rid)
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

func (s *fakeStore) IncomingEdges(context.Context, graphid.NID, store.EdgeFilter) ([]graphid.RID, error) {
	return nil, nil
}

func (s *fakeStore) Node(_ context.Context, id graphid.NID) (store.NodeRecord, error) {
	return store.NodeRecord{ID: id, Coordinate: s.nodes[id]}, nil
}

func (s *fakeStore) Edge(_ context.Context, id graphid.RID) (relationship.Relationship, error) {
	rel := s.edges[id]
	if s.edgeProps[id]["cycles_injected"] == "true" {
		rel = rel.AsCyclesInjected()
	}
	return rel, nil
}

func (s *fakeStore) SetNodeProperty(context.Context, store.Tx, graphid.NID, string, string) error {
	return nil
}
func (s *fakeStore) NodeProperty(context.Context, graphid.NID, string) (string, bool, error) {
	return "", false, nil
}
func (s *fakeStore) RemoveNodeProperty(context.Context, store.Tx, graphid.NID, string) error {
	return nil
}
func (s *fakeStore) SetEdgeProperty(_ context.Context, _ store.Tx, edge graphid.RID, key, value string) error {
	if s.edgeProps[edge] == nil {
		s.edgeProps[edge] = map[string]string{}
	}
	s.edgeProps[edge][key] = value
	return nil
}
func (s *fakeStore) EdgeProperty(_ context.Context, edge graphid.RID, key string) (string, bool, error) {
	v, ok := s.edgeProps[edge][key]
	return v, ok, nil
}
func (s *fakeStore) RemoveEdgeProperty(context.Context, store.Tx, graphid.RID, string) error {
	return nil
}
func (s *fakeStore) IndexMembers(context.Context, string) ([]graphid.NID, error) { return nil, nil }
func (s *fakeStore) Query(context.Context, string, ...any) (store.QueryResult, error) {
	return store.QueryResult{}, nil
}
func (s *fakeStore) Close(context.Context) error { return nil }

func mustCoord(t *testing.T, a string) coordinate.Coordinate {
	t.Helper()
	return coordinate.MustNew("g", a, "1.0", "", "")
}

func TestGetCyclesFindsSimpleCycleAndMarksInjector(t *testing.T) {
	s := newFakeStore()
	a, b := mustCoord(t, "a"), mustCoord(t, "b")
	ab, _ := relationship.New(relationship.Dependency, a, b, false, true, []string{"u"}, "pom.xml", 0)
	ba, _ := relationship.New(relationship.Dependency, b, a, false, true, []string{"u"}, "pom.xml", 0)
	s.addEdge(ab)
	baStored := s.addEdge(ba)

	eng := traverse.New(s)
	v, err := view.Register(context.Background(), s, eng, view.Config{Roots: []coordinate.Coordinate{a}})
	qt.Assert(t, qt.IsNil(err))

	d := New(s, eng)
	cycles, err := d.GetCycles(context.Background(), v)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(cycles), 1))
	qt.Assert(t, qt.Equals(cycles[0].InjectorRID, baStored.RID()))

	marked, _, err := s.EdgeProperty(context.Background(), baStored.RID(), "cycles_injected")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(marked, "true"))
}

func TestIsCycleParticipant(t *testing.T) {
	s := newFakeStore()
	a, b, c := mustCoord(t, "a"), mustCoord(t, "b"), mustCoord(t, "c")
	ab, _ := relationship.New(relationship.Dependency, a, b, false, true, []string{"u"}, "pom.xml", 0)
	ba, _ := relationship.New(relationship.Dependency, b, a, false, true, []string{"u"}, "pom.xml", 0)
	ac, _ := relationship.New(relationship.Dependency, a, c, false, true, []string{"u"}, "pom.xml", 1)
	s.addEdge(ab)
	s.addEdge(ba)
	s.addEdge(ac)

	eng := traverse.New(s)
	v, err := view.Register(context.Background(), s, eng, view.Config{Roots: []coordinate.Coordinate{a}})
	qt.Assert(t, qt.IsNil(err))

	d := New(s, eng)
	aID, _ := s.CreateNode(context.Background(), nil, a)
	cID, _ := s.CreateNode(context.Background(), nil, c)

	participant, err := d.IsCycleParticipant(context.Background(), v, aID)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(participant))

	participant, err = d.IsCycleParticipant(context.Background(), v, cID)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(participant))
}

func TestGetCyclesReturnsNoCyclesForAcyclicView(t *testing.T) {
	s := newFakeStore()
	a, b := mustCoord(t, "a"), mustCoord(t, "b")
	ab, _ := relationship.New(relationship.Dependency, a, b, false, true, []string{"u"}, "pom.xml", 0)
	s.addEdge(ab)

	eng := traverse.New(s)
	v, err := view.Register(context.Background(), s, eng, view.Config{Roots: []coordinate.Coordinate{a}})
	qt.Assert(t, qt.IsNil(err))

	d := New(s, eng)
	cycles, err := d.GetCycles(context.Background(), v)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(cycles), 0))
}
