// Package coordinate defines the Coordinate value type: a build-artifact
// identifier (group, artifact, version, optional classifier, optional
// extension) along with equality, hashing, canonical rendering, and
// variable-version classification.
//
// Coordinate is a plain value type; interning it into a stable node
// identifier ([graphid.NID]) is the store's job, not this package's.
package coordinate

import (
	"fmt"
	"strings"
)

// Coordinate identifies a build artifact by group, artifact, version and
// optionally classifier/extension. The zero value is not valid; construct
// one with New or MustNew.
type Coordinate struct {
	group      string
	artifact   string
	version    string
	classifier string
	extension  string
}

// GA is the (group, artifact) projection of a Coordinate, ignoring
// version, classifier and extension. It is comparable and usable as a map
// key, matching the "managed-GA" and GA-indexed lookups spec.md §6
// requires of the store.
type GA struct {
	Group    string
	Artifact string
}

// String renders "group:artifact".
func (ga GA) String() string {
	return ga.Group + ":" + ga.Artifact
}

// New constructs a Coordinate, validating that group, artifact and version
// are non-empty. Classifier and extension are optional.
func New(group, artifact, version, classifier, extension string) (Coordinate, error) {
	if group == "" {
		return Coordinate{}, fmt.Errorf("coordinate: empty group")
	}
	if artifact == "" {
		return Coordinate{}, fmt.Errorf("coordinate: empty artifact")
	}
	if version == "" {
		return Coordinate{}, fmt.Errorf("coordinate: empty version")
	}
	if strings.ContainsAny(group, ": \t\n") {
		return Coordinate{}, fmt.Errorf("coordinate: invalid character in group %q", group)
	}
	if strings.ContainsAny(artifact, ": \t\n") {
		return Coordinate{}, fmt.Errorf("coordinate: invalid character in artifact %q", artifact)
	}
	return Coordinate{
		group:      group,
		artifact:   artifact,
		version:    version,
		classifier: classifier,
		extension:  extension,
	}, nil
}

// MustNew is like New but panics on error. It is intended for tests and
// for coordinates known by construction to be valid.
func MustNew(group, artifact, version, classifier, extension string) Coordinate {
	c, err := New(group, artifact, version, classifier, extension)
	if err != nil {
		panic(err)
	}
	return c
}

// Group returns the coordinate's group (e.g. a Maven groupId).
func (c Coordinate) Group() string { return c.group }

// Artifact returns the coordinate's artifact (e.g. a Maven artifactId).
func (c Coordinate) Artifact() string { return c.artifact }

// Version returns the coordinate's version string, which may be a literal,
// a range, or an unresolved expression — see IsVariable.
func (c Coordinate) Version() string { return c.version }

// Classifier returns the coordinate's classifier, or "" if none.
func (c Coordinate) Classifier() string { return c.classifier }

// Extension returns the coordinate's extension (packaging type), or "" if
// none.
func (c Coordinate) Extension() string { return c.extension }

// GA projects c onto its (group, artifact) pair.
func (c Coordinate) GA() GA {
	return GA{Group: c.group, Artifact: c.artifact}
}

// Equal reports whether c and other name the same coordinate across all
// present fields.
func (c Coordinate) Equal(other Coordinate) bool {
	return c == other
}

// IsZero reports whether c is the zero Coordinate.
func (c Coordinate) IsZero() bool {
	return c == Coordinate{}
}

// IsVariable reports whether c's version is a range or expression rather
// than a single literal version — see IsVariableVersion.
func (c Coordinate) IsVariable() bool {
	return IsVariableVersion(c.version)
}

// String renders the canonical form "group:artifact:version", with
// ":extension" and ":classifier" segments inserted Maven-style
// (group:artifact:extension:classifier:version) when present.
func (c Coordinate) String() string {
	parts := []string{c.group, c.artifact}
	if c.extension != "" {
		parts = append(parts, c.extension)
	}
	if c.classifier != "" {
		parts = append(parts, c.classifier)
	}
	parts = append(parts, c.version)
	return strings.Join(parts, ":")
}

// Parse parses the canonical "group:artifact:version" form String renders,
// along with its "group:artifact:extension:version" and
// "group:artifact:extension:classifier:version" extended forms (the same
// field order Maven itself uses for a fully-qualified coordinate).
func Parse(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 3:
		return New(parts[0], parts[1], parts[2], "", "")
	case 4:
		return New(parts[0], parts[1], parts[3], "", parts[2])
	case 5:
		return New(parts[0], parts[1], parts[4], parts[3], parts[2])
	default:
		return Coordinate{}, fmt.Errorf("coordinate: invalid coordinate %q: expected 3-5 colon-separated fields", s)
	}
}

// Sort sorts list by (group, artifact), breaking ties by Compare-ordered
// version and then by classifier/extension, matching the tie-break order
// spec.md §4.5 requires of sorted traversal: "(edge-type-priority,
// declaring-coordinate, index, target-coordinate)".
func Sort(list []Coordinate) {
	sortInPlace(list, less)
}

// Unique sorts a copy of list (see Sort) and removes exact duplicates,
// returning the deduplicated slice. It is used wherever a set of
// coordinates that arrived as a list (view roots, build lists) needs a
// canonical, duplicate-free order — e.g. for View short-id hashing, where
// two equivalent root sets must hash identically regardless of input
// order or repeats.
func Unique(list []Coordinate) []Coordinate {
	cp := append([]Coordinate(nil), list...)
	return uniqueInPlace(cp, less)
}

func less(a, b Coordinate) bool {
	if a.group != b.group {
		return a.group < b.group
	}
	if a.artifact != b.artifact {
		return a.artifact < b.artifact
	}
	if c := Compare(a.version, b.version); c != 0 {
		return c < 0
	}
	if a.extension != b.extension {
		return a.extension < b.extension
	}
	return a.classifier < b.classifier
}
