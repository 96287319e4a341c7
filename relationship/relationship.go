// Package relationship defines the typed, directed edges between
// coordinates that the graph engine ingests: dependency, managed
// dependency, parent, bill-of-materials, plugin, plugin-dependency and
// extension relationships.
//
// Rather than a class hierarchy per edge kind, a Relationship is a single
// tagged variant over a shared attribute record — see spec.md §9's note
// on replacing "deep inheritance of relationship subtypes" with "a single
// tagged variant plus a shared attribute record". select_declaring,
// select_target and AddSource(s) are pure constructors over that record,
// following internal/mod/module.NewVersion's style of validating
// constructors rather than mutable setters.
package relationship

import (
	"fmt"
	"sort"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/graphid"
)

// Kind tags the variant of a Relationship.
type Kind int

const (
	// Dependency is a direct or managed dependency edge; Scope() holds
	// the declared scope (compile, runtime, test, provided, …).
	Dependency Kind = iota
	// Plugin is a build-plugin reference.
	Plugin
	// PluginDep is a dependency declared on a plugin.
	PluginDep
	// Parent is a POM parent reference. A Parent with Declaring==Target
	// is a terminus marker, not a real edge — see IsTerminus.
	Parent
	// Bom is a bill-of-materials import.
	Bom
	// Extension is a build-extension reference.
	Extension
)

func (k Kind) String() string {
	switch k {
	case Dependency:
		return "DEPENDENCY"
	case Plugin:
		return "PLUGIN"
	case PluginDep:
		return "PLUGIN_DEP"
	case Parent:
		return "PARENT"
	case Bom:
		return "BOM"
	case Extension:
		return "EXTENSION"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Relationship is a typed, directed edge between two coordinates, with
// the metadata spec.md §3 requires of every R: declaring/target
// coordinate, managed and concrete flags, source URIs, POM location,
// declaration index, and (once persisted) a stable RID.
type Relationship struct {
	rid       graphid.RID
	kind      Kind
	scope     string
	declaring coordinate.Coordinate
	target    coordinate.Coordinate
	managed   bool
	concrete  bool
	sources   []string // sorted, deduplicated set<URI>
	pomLoc    string
	index     int

	selection      bool // synthesized by a Selector for one view; see spec.md §4.4
	cyclesInjected bool // marked by the cycle detector; see spec.md §4.7
}

// New constructs a Relationship. sources must be non-empty, per spec.md
// §4.1 ("Relationship construction requires declaring, target, type,
// sources (non-empty), index, managed flag"). concrete is forced to true
// for Bom and Parent kinds regardless of the concrete argument, matching
// spec.md §3's note that "BOM and PARENT are always concrete even though
// structurally BOM is declared in a management section".
func New(kind Kind, declaring, target coordinate.Coordinate, managed, concrete bool, sources []string, pomLoc string, index int) (Relationship, error) {
	if declaring.IsZero() {
		return Relationship{}, fmt.Errorf("relationship: zero declaring coordinate")
	}
	if target.IsZero() {
		return Relationship{}, fmt.Errorf("relationship: zero target coordinate")
	}
	if len(sources) == 0 {
		return Relationship{}, fmt.Errorf("relationship: at least one source URI is required")
	}
	if kind == Parent || kind == Bom {
		concrete = true
	}
	return Relationship{
		kind:      kind,
		declaring: declaring,
		target:    target,
		managed:   managed,
		concrete:  concrete,
		sources:   normalizeSources(sources),
		pomLoc:    pomLoc,
		index:     index,
	}, nil
}

// NewDependency is a convenience constructor for Kind Dependency that also
// sets Scope.
func NewDependency(scope string, declaring, target coordinate.Coordinate, managed, concrete bool, sources []string, pomLoc string, index int) (Relationship, error) {
	r, err := New(Dependency, declaring, target, managed, concrete, sources, pomLoc, index)
	if err != nil {
		return Relationship{}, err
	}
	r.scope = scope
	return r, nil
}

func normalizeSources(sources []string) []string {
	set := make(map[string]struct{}, len(sources))
	for _, s := range sources {
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// RID returns the relationship's stable edge identifier, or the zero
// value if it has not yet been persisted by a store.
func (r Relationship) RID() graphid.RID { return r.rid }

// WithRID returns a copy of r with its RID set. Only the store (or a test
// double of it) should call this, when creating or looking up the edge.
func (r Relationship) WithRID(rid graphid.RID) Relationship {
	r.rid = rid
	return r
}

// Kind returns the relationship's tagged variant.
func (r Relationship) Kind() Kind { return r.kind }

// Scope returns the declared dependency scope; only meaningful when
// Kind() == Dependency.
func (r Relationship) Scope() string { return r.scope }

// Declaring returns the coordinate that declares this relationship.
func (r Relationship) Declaring() coordinate.Coordinate { return r.declaring }

// Target returns the coordinate this relationship points to.
func (r Relationship) Target() coordinate.Coordinate { return r.target }

// Managed reports whether this relationship was declared in a management
// section (dependencyManagement, pluginManagement) rather than directly.
func (r Relationship) Managed() bool { return r.managed }

// Concrete reports whether this relationship denotes an edge that should
// actually be traversed/built against, as opposed to a purely declarative
// management entry. Bom and Parent relationships are always concrete.
func (r Relationship) Concrete() bool { return r.concrete }

// Sources returns the (sorted, deduplicated) set of source URIs that
// contributed this relationship. The returned slice must not be modified.
func (r Relationship) Sources() []string { return r.sources }

// PomLocation returns the URI of the declaring POM.
func (r Relationship) PomLocation() string { return r.pomLoc }

// Index returns the declaration order of this relationship within its
// declaring POM.
func (r Relationship) Index() int { return r.index }

// IsSelectionEdge reports whether this relationship was synthesized by a
// Selector for one particular view, rather than ingested from a POM. Per
// spec.md §4.4's selection-edge rule, a selection edge is never followed
// on its own merit by the traversal engine.
func (r Relationship) IsSelectionEdge() bool { return r.selection }

// AsSelectionEdge returns a copy of r flagged as a selection edge.
func (r Relationship) AsSelectionEdge() Relationship {
	r.selection = true
	return r
}

// CyclesInjected reports whether this edge has been marked, by a prior
// cycle-detector run, as the injecting edge of a minimal cycle — see
// spec.md §4.7's invariant. Future avoid-cycles traversals skip it
// without re-deriving the cycle.
func (r Relationship) CyclesInjected() bool { return r.cyclesInjected }

// AsCyclesInjected returns a copy of r marked with the CYCLES_INJECTED
// flag.
func (r Relationship) AsCyclesInjected() Relationship {
	r.cyclesInjected = true
	return r
}

// IsTerminus reports whether r is a PARENT relationship whose declaring
// and target coordinates are identical — a terminus marker rather than a
// real edge, per spec.md §3.
func (r Relationship) IsTerminus() bool {
	return r.kind == Parent && r.declaring.Equal(r.target)
}

// TargetAsPOMArtifact returns the target coordinate rendered with the
// "pom" extension, the form spec.md §4.1 requires BOM relationships to
// expose their target as ("BOM relationships expose the target as a POM
// artifact"). It panics if r is not a Bom relationship.
func (r Relationship) TargetAsPOMArtifact() coordinate.Coordinate {
	if r.kind != Bom {
		panic("relationship: TargetAsPOMArtifact called on non-BOM relationship")
	}
	return coordinate.MustNew(r.target.Group(), r.target.Artifact(), r.target.Version(), r.target.Classifier(), "pom")
}

// AddSource returns a copy of r with u added to its source-URI set.
func (r Relationship) AddSource(u string) Relationship {
	return r.AddSources([]string{u})
}

// AddSources returns a copy of r with us unioned into its source-URI set.
func (r Relationship) AddSources(us []string) Relationship {
	r.sources = normalizeSources(append(append([]string(nil), r.sources...), us...))
	return r
}

// SelectDeclaring returns a copy of r with its declaring coordinate
// replaced by c, preserving every other attribute (including index and
// sources) and resetting RID and CyclesInjected, since this denotes a
// distinct edge that has not itself been persisted or analyzed yet.
func (r Relationship) SelectDeclaring(c coordinate.Coordinate) Relationship {
	r.declaring = c
	r.rid = ""
	r.cyclesInjected = false
	return r
}

// SelectTarget returns a copy of r with its target coordinate replaced by
// c, preserving every other attribute except RID and CyclesInjected, both
// reset: the substitute is a new edge to a different node, so neither r's
// persisted identity nor whatever cycle finding applied to r's original
// target carries over.
func (r Relationship) SelectTarget(c coordinate.Coordinate) Relationship {
	r.target = c
	r.rid = ""
	r.cyclesInjected = false
	return r
}
