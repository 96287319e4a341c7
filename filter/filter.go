// Package filter implements spec.md §4.2's Filter contract: a pure
// predicate over a relationship plus its traversal context, producing a
// (possibly narrower) child filter for each accepted edge so that filters
// can tighten as a traversal descends.
//
// Filters must not read mutable state — composition (AllOf, AnyOf, Not)
// and the concrete filters here are all built from closures over
// immutable configuration, the same style
// internal/mod/modrequirements.Requirements.WithDefaultMajorVersions uses
// to return a modified copy rather than mutate in place.
package filter

import (
	"github.com/bxf12315/depgraph/pathinfo"
	"github.com/bxf12315/depgraph/relationship"
)

// acceptAll is the root filter of a view that wants the raw multigraph:
// it accepts every edge and never narrows.
type acceptAll struct{}

// AcceptAll returns a Filter that accepts every edge unconditionally.
func AcceptAll() pathinfo.Filter { return acceptAll{} }

func (acceptAll) Accept(relationship.Relationship, pathinfo.Path, pathinfo.Info) (pathinfo.Filter, bool) {
	return acceptAll{}, true
}

// fn adapts a plain predicate function to pathinfo.Filter. The child
// filter is always fn itself: a predicate-only filter doesn't narrow.
type fn func(e relationship.Relationship, p pathinfo.Path, pi pathinfo.Info) bool

func (f fn) Accept(e relationship.Relationship, p pathinfo.Path, pi pathinfo.Info) (pathinfo.Filter, bool) {
	if !f(e, p, pi) {
		return nil, false
	}
	return f, true
}

// Func wraps a plain predicate as a non-narrowing Filter.
func Func(predicate func(e relationship.Relationship, p pathinfo.Path, pi pathinfo.Info) bool) pathinfo.Filter {
	return fn(predicate)
}

// Types returns a Filter accepting only relationships of one of the given
// kinds — e.g. a "plugins only" or "compile-scope dependencies only"
// view, as spec.md §4.8's include_managed/include_concrete/types query
// parameters require a view-level equivalent of.
func Types(kinds ...relationship.Kind) pathinfo.Filter {
	set := make(map[relationship.Kind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return Func(func(e relationship.Relationship, _ pathinfo.Path, _ pathinfo.Info) bool {
		_, ok := set[e.Kind()]
		return ok
	})
}

// ManagedOnly returns a Filter accepting only managed relationships.
func ManagedOnly() pathinfo.Filter {
	return Func(func(e relationship.Relationship, _ pathinfo.Path, _ pathinfo.Info) bool {
		return e.Managed()
	})
}

// ConcreteOnly returns a Filter accepting only concrete relationships.
func ConcreteOnly() pathinfo.Filter {
	return Func(func(e relationship.Relationship, _ pathinfo.Path, _ pathinfo.Info) bool {
		return e.Concrete()
	})
}

// allOf composes filters with AND semantics, narrowing to the AND of all
// children's next filters.
type allOf struct {
	filters []pathinfo.Filter
}

// AllOf returns a Filter that accepts an edge only if every one of fs
// accepts it, and whose child filter is the AllOf of each child filter
// returned.
func AllOf(fs ...pathinfo.Filter) pathinfo.Filter {
	if len(fs) == 1 {
		return fs[0]
	}
	return allOf{filters: fs}
}

func (a allOf) Accept(e relationship.Relationship, p pathinfo.Path, pi pathinfo.Info) (pathinfo.Filter, bool) {
	children := make([]pathinfo.Filter, 0, len(a.filters))
	for _, f := range a.filters {
		child, ok := f.Accept(e, p, pi)
		if !ok {
			return nil, false
		}
		children = append(children, child)
	}
	return allOf{filters: children}, true
}

// anyOf composes filters with OR semantics.
type anyOf struct {
	filters []pathinfo.Filter
}

// AnyOf returns a Filter that accepts an edge if any of fs accepts it.
// The child filter narrows to the AnyOf of the children that accepted.
func AnyOf(fs ...pathinfo.Filter) pathinfo.Filter {
	if len(fs) == 1 {
		return fs[0]
	}
	return anyOf{filters: fs}
}

func (a anyOf) Accept(e relationship.Relationship, p pathinfo.Path, pi pathinfo.Info) (pathinfo.Filter, bool) {
	var children []pathinfo.Filter
	for _, f := range a.filters {
		if child, ok := f.Accept(e, p, pi); ok {
			children = append(children, child)
		}
	}
	if len(children) == 0 {
		return nil, false
	}
	return anyOf{filters: children}, true
}

// not negates a filter. Since a rejecting Filter has no child to carry
// forward, not's child filter is always the negation itself, still
// wrapping the unmodified inner filter: a negated filter doesn't narrow
// across levels, it just flips the verdict at each one.
type not struct {
	inner pathinfo.Filter
}

// Not returns a Filter that accepts an edge iff inner rejects it.
func Not(inner pathinfo.Filter) pathinfo.Filter {
	return not{inner: inner}
}

func (n not) Accept(e relationship.Relationship, p pathinfo.Path, pi pathinfo.Info) (pathinfo.Filter, bool) {
	if _, ok := n.inner.Accept(e, p, pi); ok {
		return nil, false
	}
	return n, true
}
