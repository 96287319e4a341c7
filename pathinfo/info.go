package pathinfo

import (
	"github.com/bxf12315/depgraph/relationship"
)

// Filter is the contract spec.md §4.2 assigns to a Filter: a pure
// function of an edge, the Path leading to it, and the current Info,
// returning a (possibly narrowed) child Filter to use for edges expanded
// from the accepted edge's target, or ok=false to reject. Implementations
// live in package filter; Info only needs the interface, not the concrete
// types, to avoid a dependency cycle (filter imports pathinfo, not the
// reverse).
type Filter interface {
	Accept(e relationship.Relationship, p Path, pi Info) (child Filter, ok bool)
}

// Selector is the contract spec.md §4.4 assigns to a Selector: given a
// candidate edge and the Path leading to it, decide whether to follow it
// unchanged, follow a substitute, or reject it — and, since "selector
// state is carried inside PathInfo", return the Selector to use for the
// next step down this Path. Implementations live in package selector.
type Selector interface {
	Select(e relationship.Relationship, p Path) (edge relationship.Relationship, next Selector, ok bool)
}

// Info is the filter+selector state accumulated along a Path — spec.md
// §3's PathInfo. It is constructed once by a View from its root filter
// and selector, and threaded forward by ChildPathInfo as the traversal
// engine descends.
type Info struct {
	filter   Filter
	selector Selector
}

// NewInfo constructs the initial Info for a view's root filter and
// selector.
func NewInfo(f Filter, s Selector) Info {
	return Info{filter: f, selector: s}
}

// Filter returns the Filter in effect at this point of the Path.
func (i Info) Filter() Filter { return i.filter }

// Selector returns the Selector in effect at this point of the Path.
func (i Info) Selector() Selector { return i.selector }

// ChildPathInfo asks this Info's Selector and then its Filter about
// candidate edge e discovered while extending Path p, in that order (the
// Selector may substitute e before the Filter ever sees it). It returns
// the edge actually accepted (original or substitute), the Info to apply
// to edges expanded from its target, and ok=false if either component
// rejected — "child_path_info(edge) -> Option<PathInfo>... None to abort
// the branch (equivalent to REJECT)" per spec.md §4.3.
func (i Info) ChildPathInfo(e relationship.Relationship, p Path) (accepted relationship.Relationship, child Info, ok bool) {
	edge, nextSelector, ok := i.selector.Select(e, p)
	if !ok {
		return relationship.Relationship{}, Info{}, false
	}
	nextFilter, ok := i.filter.Accept(edge, p, i)
	if !ok {
		return relationship.Relationship{}, Info{}, false
	}
	return edge, Info{filter: nextFilter, selector: nextSelector}, true
}
