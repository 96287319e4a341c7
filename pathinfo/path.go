// Package pathinfo defines Path (the ordered sequence of edge identifiers
// from a view root to the current node) and Info (the filter+selector
// state accumulated along that Path) — spec.md §4.3.
//
// Path carries identifiers, not owning references, per spec.md §9's note
// on handling a cyclic graph of nodes/edges: "internal structures hold
// identifiers, not owning references. Paths are sequences of edge
// identifiers with O(1) extension and structural equality." This mirrors
// how internal/mod/mvs.Graph keys everything off a comparable module.Version
// rather than a pointer into a mutable graph.
package pathinfo

import (
	"strings"

	"github.com/bxf12315/depgraph/graphid"
)

// Path is the ordered sequence of edge identifiers from a view root to
// the current node. The empty Path denotes a root itself. Two Paths are
// equal iff their RID sequences are equal.
type Path struct {
	rids []graphid.RID
}

// Empty returns the empty (root) Path.
func Empty() Path {
	return Path{}
}

// New constructs a Path from an explicit RID sequence. Round-tripping
// New(edges...).RIDs() returns the original sequence — the "round-trip"
// property spec.md §8 requires of create_path.
func New(rids ...graphid.RID) Path {
	return Path{rids: append([]graphid.RID(nil), rids...)}
}

// Append returns a new Path with rid appended; it does not modify p.
func (p Path) Append(rid graphid.RID) Path {
	next := make([]graphid.RID, len(p.rids)+1)
	copy(next, p.rids)
	next[len(p.rids)] = rid
	return Path{rids: next}
}

// LastRID returns the final edge identifier of p, or ok=false if p is
// empty.
func (p Path) LastRID() (rid graphid.RID, ok bool) {
	if len(p.rids) == 0 {
		return "", false
	}
	return p.rids[len(p.rids)-1], true
}

// Len returns the number of edges in p.
func (p Path) Len() int { return len(p.rids) }

// IsEmpty reports whether p is the root Path.
func (p Path) IsEmpty() bool { return len(p.rids) == 0 }

// RIDs returns a copy of p's edge-identifier sequence, in traversal
// order.
func (p Path) RIDs() []graphid.RID {
	return append([]graphid.RID(nil), p.rids...)
}

// Contains reports whether rid appears anywhere in p.
func (p Path) Contains(rid graphid.RID) bool {
	for _, r := range p.rids {
		if r == rid {
			return true
		}
	}
	return false
}

// Key returns a deterministic string serialization of p, suitable for use
// as a map key (Go slices aren't comparable, so ViewCache indexes Paths
// by Key() rather than by Path itself).
func (p Path) Key() string {
	if len(p.rids) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range p.rids {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(string(r))
	}
	return b.String()
}

// Equal reports whether p and other have identical RID sequences.
func (p Path) Equal(other Path) bool {
	return p.Key() == other.Key()
}
