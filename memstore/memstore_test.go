package memstore

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/go-quicktest/qt"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/graphid"
	"github.com/bxf12315/depgraph/internal/graphfixture"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/store"
)

func mustCoord(t *testing.T, g, a, v string) coordinate.Coordinate {
	t.Helper()
	c, err := coordinate.New(g, a, v, "", "")
	qt.Assert(t, qt.IsNil(err))
	return c
}

func mustDep(t *testing.T, declaring, target coordinate.Coordinate, index int) relationship.Relationship {
	t.Helper()
	r, err := relationship.NewDependency("compile", declaring, target, false, true, []string{"file:///pom.xml"}, "file:///pom.xml", index)
	qt.Assert(t, qt.IsNil(err))
	return r
}

func TestCreateNodeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := mustCoord(t, "com.example", "a", "1.0")

	id1, err := s.CreateNode(ctx, nil, c)
	qt.Assert(t, qt.IsNil(err))
	id2, err := s.CreateNode(ctx, nil, c)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(id1, id2))

	rec, err := s.Node(ctx, id1)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(rec.Coordinate, c))
	qt.Assert(t, qt.IsFalse(rec.Connected))
}

func TestCreateNodeRejectsZeroCoordinate(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.CreateNode(ctx, nil, coordinate.Coordinate{})
	qt.Assert(t, qt.IsTrue(store.Is(err, store.InvalidArgument)))
}

func TestCreateEdgeClearsMissingFlagOnDeclaringNode(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := mustCoord(t, "com.example", "a", "1.0")
	b := mustCoord(t, "com.example", "b", "1.0")

	bID, err := s.CreateNode(ctx, nil, b)
	qt.Assert(t, qt.IsNil(err))
	missing, err := s.IndexMembers(ctx, indexMissingNodes)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Contains(missing, bID))

	_, err = s.CreateEdge(ctx, nil, mustDep(t, b, a, 0))
	qt.Assert(t, qt.IsNil(err))

	missing, err = s.IndexMembers(ctx, indexMissingNodes)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Not(qt.Contains(missing, bID)))
}

func TestCreateEdgeIsIdempotentByDeclarationKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := mustCoord(t, "com.example", "a", "1.0")
	b := mustCoord(t, "com.example", "b", "1.0")
	rel := mustDep(t, a, b, 0)

	r1, err := s.CreateEdge(ctx, nil, rel)
	qt.Assert(t, qt.IsNil(err))
	r2, err := s.CreateEdge(ctx, nil, rel.AddSource("file:///other-pom.xml"))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(r1.RID(), r2.RID()))

	stored, err := s.Edge(ctx, r1.RID())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(stored.Sources(), 2))

	all, err := s.EdgesByProperty(ctx, indexAllRelationships, "")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(all, 1))
}

// The selection/cycles_injected flags a stored edge renders come from its
// property bag, not the relationship struct it was created with: clearing
// the property must be observable on the next Edge call, the same
// guarantee package query's Shutdown relies on when it un-marks selection
// edges via RemoveEdgeProperty.
func TestSelectionFlagIsPropertyBacked(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := mustCoord(t, "com.example", "a", "1.0")
	b := mustCoord(t, "com.example", "b", "2.0")

	rel := mustDep(t, a, b, 0).AsSelectionEdge()
	created, err := s.CreateEdge(ctx, nil, rel)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(created.IsSelectionEdge()))

	selected, err := s.EdgesByProperty(ctx, indexSelectionRelationships, "true")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Contains(selected, created.RID()))

	err = s.RemoveEdgeProperty(ctx, nil, created.RID(), selectionProperty)
	qt.Assert(t, qt.IsNil(err))

	reloaded, err := s.Edge(ctx, created.RID())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(reloaded.IsSelectionEdge()))

	selected, err = s.EdgesByProperty(ctx, indexSelectionRelationships, "true")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Not(qt.Contains(selected, created.RID())))
}

func TestVariableNodeIndexTracksNonLiteralVersions(t *testing.T) {
	ctx := context.Background()
	s := New()
	variable := mustCoord(t, "com.example", "a", "[1.0,2.0)")
	literal := mustCoord(t, "com.example", "b", "1.0")

	vID, err := s.CreateNode(ctx, nil, variable)
	qt.Assert(t, qt.IsNil(err))
	_, err = s.CreateNode(ctx, nil, literal)
	qt.Assert(t, qt.IsNil(err))

	members, err := s.IndexMembers(ctx, indexVariableNodes)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(members, []graphid.NID{vID}))
}

func TestManagedGAIndex(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := mustCoord(t, "com.example", "a", "1.0")
	b := mustCoord(t, "com.example", "b", "2.0")

	managedRel, err := relationship.NewDependency("compile", a, b, true, false, []string{"file:///pom.xml"}, "file:///pom.xml", 0)
	qt.Assert(t, qt.IsNil(err))
	created, err := s.CreateEdge(ctx, nil, managedRel)
	qt.Assert(t, qt.IsNil(err))

	rids, err := s.EdgesByProperty(ctx, indexManagedGA, b.GA().String())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(rids, []graphid.RID{created.RID()}))
}

func TestNodePropertyAndMetadataIndex(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := mustCoord(t, "com.example", "a", "1.0")
	id, err := s.CreateNode(ctx, nil, a)
	qt.Assert(t, qt.IsNil(err))

	err = s.SetNodeProperty(ctx, nil, id, "meta:license", "Apache-2.0")
	qt.Assert(t, qt.IsNil(err))

	v, ok, err := s.NodeProperty(ctx, id, "meta:license")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(ok))
	qt.Assert(t, qt.Equals(v, "Apache-2.0"))

	members, err := s.IndexMembers(ctx, metadataIndexPrefix+"license")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(members, []graphid.NID{id}))

	err = s.RemoveNodeProperty(ctx, nil, id, "meta:license")
	qt.Assert(t, qt.IsNil(err))
	members, err = s.IndexMembers(ctx, metadataIndexPrefix+"license")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(members, 0))
}

func TestOutgoingIncomingEdgesFilterByKind(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := mustCoord(t, "com.example", "a", "1.0")
	b := mustCoord(t, "com.example", "b", "1.0")

	dep := mustDep(t, a, b, 0)
	plugin, err := relationship.New(relationship.Plugin, a, b, false, true, []string{"file:///pom.xml"}, "file:///pom.xml", 1)
	qt.Assert(t, qt.IsNil(err))

	_, err = s.CreateEdge(ctx, nil, dep)
	qt.Assert(t, qt.IsNil(err))
	_, err = s.CreateEdge(ctx, nil, plugin)
	qt.Assert(t, qt.IsNil(err))

	aID, err := s.CreateNode(ctx, nil, a)
	qt.Assert(t, qt.IsNil(err))

	all, err := s.OutgoingEdges(ctx, aID, store.EdgeFilter{})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(all, 2))

	onlyDeps, err := s.OutgoingEdges(ctx, aID, store.EdgeFilter{Kinds: []relationship.Kind{relationship.Dependency}})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(onlyDeps, 1))
}

func TestCloseRejectsFurtherOperations(t *testing.T) {
	ctx := context.Background()
	s := New()
	qt.Assert(t, qt.IsNil(s.Close(ctx)))

	_, err := s.CreateNode(ctx, nil, mustCoord(t, "com.example", "a", "1.0"))
	qt.Assert(t, qt.IsTrue(store.Is(err, store.StoreClosed)))

	err = s.Close(ctx)
	qt.Assert(t, qt.IsTrue(store.Is(err, store.StoreClosed)))
}

func TestQueryIsUnsupported(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Query(ctx, "MATCH (n) RETURN n")
	qt.Assert(t, qt.IsTrue(store.Is(err, store.InvalidArgument)))
}

// edgeLabel renders a persisted edge as "declaring -[KIND]-> target",
// dropping the store-assigned RID so the set of persisted edges can be
// diffed without caring about graphid.RID's random uuid values.
func edgeLabel(rel relationship.Relationship) string {
	return fmt.Sprintf("%s -[%s]-> %s", rel.Declaring(), rel.Kind(), rel.Target())
}

// TestCreateEdgeFromTxtarFixture exercises CreateEdge/OutgoingEdges against
// a graph declared as a txtar fixture (package graphfixture) instead of
// literal relationship.New calls, and diffs the persisted edge set with
// go-cmp rather than a bare length check.
func TestCreateEdgeFromTxtarFixture(t *testing.T) {
	g, err := graphfixture.Parse([]byte(`
-- graph --
com.example:app:1.0 -[DEPENDENCY]-> com.example:lib:2.0 src=u
com.example:app:1.0 -[PLUGIN]-> com.example:plugin:1.0 src=u
com.example:lib:2.0 -[DEPENDENCY]-> com.example:util:3.0 src=u
`))
	qt.Assert(t, qt.IsNil(err))

	ctx := context.Background()
	s := New()
	for _, rel := range g.Relationships {
		_, err := s.CreateEdge(ctx, nil, rel)
		qt.Assert(t, qt.IsNil(err))
	}

	app := mustCoord(t, "com.example", "app", "1.0")
	appID, err := s.CreateNode(ctx, nil, app)
	qt.Assert(t, qt.IsNil(err))

	rids, err := s.OutgoingEdges(ctx, appID, store.EdgeFilter{})
	qt.Assert(t, qt.IsNil(err))

	var got []string
	for _, rid := range rids {
		rel, err := s.Edge(ctx, rid)
		qt.Assert(t, qt.IsNil(err))
		got = append(got, edgeLabel(rel))
	}
	sort.Strings(got)

	want := []string{
		edgeLabel(g.Relationships[0]),
		edgeLabel(g.Relationships[1]),
	}
	sort.Strings(want)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected outgoing edge set (-want +got):\n%s", diff)
	}
}
