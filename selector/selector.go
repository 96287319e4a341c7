// Package selector implements spec.md §4.4's Selector contract: a
// version-selection policy attached to a view that, given a candidate
// edge and the Path leading to it, either lets the edge through unchanged,
// substitutes a different edge (recorded as a selection edge per the
// selection-edge rule), or rejects the branch.
//
// The built-in policies here are the per-view incarnation of
// internal/mod/mvs.Graph's required/selected bookkeeping
// (internal/mod/mvs/graph.go), adapted from a whole-graph eager precompute
// to a lazy, per-edge decision: spec.md makes selection a property of the
// traversal ("Selector state is carried inside PathInfo"), not a
// standalone pass run before traversal starts the way Go's MVS computes
// a build list up front.
package selector

import (
	"sync"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/pathinfo"
	"github.com/bxf12315/depgraph/relationship"
)

// passThrough never substitutes or rejects.
type passThrough struct{}

// PassThrough returns the identity Selector: every edge is followed
// unchanged. This is what view.New uses when the caller supplies no
// selector, matching spec.md §4.4's baseline "returns the same edge
// unchanged" outcome.
func PassThrough() pathinfo.Selector { return passThrough{} }

func (passThrough) Select(e relationship.Relationship, _ pathinfo.Path) (relationship.Relationship, pathinfo.Selector, bool) {
	return e, passThrough{}, true
}

// pinState is the mutable, per-view bookkeeping shared by every copy of a
// FirstWin or NearestWins selector value produced from the same call to
// NewFirstWin/NewNearestWins. It lives behind a pointer so that, even
// though pathinfo.Selector values are passed by value through Info, all
// branches of one view's traversal observe the same pins — matching
// spec.md's "first-win version pinning" example of a decision that
// "depend[s] on prior path choices" made on other branches, not just the
// calling branch's own Path prefix.
type pinState struct {
	mu     sync.Mutex
	pinned map[coordinate.GA]pin
}

type pin struct {
	coordinate coordinate.Coordinate
	depth      int
}

func newPinState() *pinState {
	return &pinState{pinned: make(map[coordinate.GA]pin)}
}

// firstWin pins the first version seen for a (group, artifact) pair for
// the lifetime of the view, and substitutes every later edge targeting a
// different version of that GA with a selection edge pointing at the
// pinned coordinate.
type firstWin struct {
	state *pinState
}

// NewFirstWin returns a Selector implementing Maven's classic
// first-declaration-wins mediation: whichever version of a (group,
// artifact) is discovered first during this view's traversal is pinned
// for the rest of it.
func NewFirstWin() pathinfo.Selector {
	return firstWin{state: newPinState()}
}

func (f firstWin) Select(e relationship.Relationship, p pathinfo.Path) (relationship.Relationship, pathinfo.Selector, bool) {
	ga := e.Target().GA()
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	existing, ok := f.state.pinned[ga]
	if !ok {
		f.state.pinned[ga] = pin{coordinate: e.Target(), depth: p.Len()}
		return e, f, true
	}
	if existing.coordinate.Equal(e.Target()) {
		return e, f, true
	}
	return substitute(e, existing.coordinate), f, true
}

// nearestWins pins the shallowest-path version seen for a (group,
// artifact) pair, re-pinning whenever a shallower path supersedes the
// current pin — Maven's actual dependency-mediation algorithm (nearest
// declaration wins, ties broken by declaration order), as opposed to
// firstWin's simpler first-seen-wins approximation. See DESIGN.md for why
// both are shipped rather than picking one.
type nearestWins struct {
	state *pinState
}

// NewNearestWins returns a Selector implementing Maven's real mediation
// rule: the version declared at the shallowest depth from the view's
// roots wins, regardless of discovery order.
func NewNearestWins() pathinfo.Selector {
	return nearestWins{state: newPinState()}
}

func (n nearestWins) Select(e relationship.Relationship, p pathinfo.Path) (relationship.Relationship, pathinfo.Selector, bool) {
	ga := e.Target().GA()
	depth := p.Len()
	n.state.mu.Lock()
	defer n.state.mu.Unlock()
	existing, ok := n.state.pinned[ga]
	switch {
	case !ok:
		n.state.pinned[ga] = pin{coordinate: e.Target(), depth: depth}
		return e, n, true
	case existing.coordinate.Equal(e.Target()):
		if depth < existing.depth {
			n.state.pinned[ga] = pin{coordinate: e.Target(), depth: depth}
		}
		return e, n, true
	case depth < existing.depth:
		n.state.pinned[ga] = pin{coordinate: e.Target(), depth: depth}
		return e, n, true
	default:
		return substitute(e, existing.coordinate), n, true
	}
}

// Pinner is implemented by the Selectors above that carry externally
// settable pin state: register_view_selection's hook into a FirstWin or
// NearestWins selector, forcing a GA's pin to a caller-chosen version
// rather than whatever version traversal would otherwise discover first
// or shallowest. Selector implementations that don't carry pinnable state
// (PassThrough) simply don't implement this interface.
type Pinner interface {
	Pin(ga coordinate.GA, version coordinate.Coordinate)
}

// Pin forces ga's pin to version, overriding whatever firstWin's own
// traversal-order discovery had previously pinned.
func (f firstWin) Pin(ga coordinate.GA, version coordinate.Coordinate) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	f.state.pinned[ga] = pin{coordinate: version, depth: 0}
}

// Pin forces ga's pin to version at depth -1, so no traversal-discovered
// pin (whose depth is always >= 0) can ever outrank it.
func (n nearestWins) Pin(ga coordinate.GA, version coordinate.Coordinate) {
	n.state.mu.Lock()
	defer n.state.mu.Unlock()
	n.state.pinned[ga] = pin{coordinate: version, depth: -1}
}

// substitute builds the selection edge that redirects e at the pinned
// coordinate, per spec.md §4.4's "returns a different edge (existing or
// newly synthesized)" outcome. The caller (the traversal engine, via the
// view package) is responsible for recording it in the store so it is
// "discoverable in future traversals of the same view and discarded at
// shutdown".
func substitute(e relationship.Relationship, pinned coordinate.Coordinate) relationship.Relationship {
	return e.SelectTarget(pinned).AsSelectionEdge()
}
