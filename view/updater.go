package view

import (
	"context"
	"fmt"

	"github.com/bxf12315/depgraph/graphid"
	"github.com/bxf12315/depgraph/pathinfo"
	"github.com/bxf12315/depgraph/relationship"
	"github.com/bxf12315/depgraph/store"
	"github.com/bxf12315/depgraph/traverse"
)

// viewUpdater is spec.md §4.6's ViewUpdater: for every accepted emission
// during a view's materialization traversal it appends the accepted RID
// to the running Path, writes {Path -> PathInfo} into the cache, and
// inserts the edge and its endpoints into Edges and Nodes.
//
// traverse.Visitor's callback methods don't return an error (spec.md's
// Visitor contract doesn't model one), so a store failure encountered
// mid-walk is recorded on err and surfaced by the caller once Run
// returns, the way a single background goroutine reports its error
// through a field rather than a channel when there is exactly one
// reader.
type viewUpdater struct {
	ctx      context.Context
	store    store.Store
	cache    *Cache
	rootInfo pathinfo.Info

	err error

	// cyclesFound records whether the materialization walk crossed any
	// back-edge. View.materialize copies it onto the View as
	// noCyclesAtMaterialize so package cycle can skip its own full rescan
	// when this pass already proved there's nothing to find.
	cyclesFound bool
}

var _ traverse.Visitor = (*viewUpdater)(nil)

func (u *viewUpdater) IsEnabledFor(pathinfo.Path) bool      { return u.err == nil }
func (u *viewUpdater) ShouldAvoidRedundantPaths() bool      { return false }
func (u *viewUpdater) HasSeen(pathinfo.Path, pathinfo.Info) bool { return false }

func (u *viewUpdater) SplicePath(p pathinfo.Path) pathinfo.Path         { return p }
func (u *viewUpdater) SplicePathInfo(pi pathinfo.Info) pathinfo.Info    { return pi }
func (u *viewUpdater) InitializePathInfo(pathinfo.Path) pathinfo.Info   { return u.rootInfo }
func (u *viewUpdater) IncludeChildren(pathinfo.Path, pathinfo.Info, graphid.NID) bool {
	return u.err == nil
}

func (u *viewUpdater) IncludingChild(e relationship.Relationship, newPath pathinfo.Path, newInfo pathinfo.Info, currentPath pathinfo.Path) {
	if u.err != nil {
		return
	}
	parentNodes, err := u.resolveNodes(currentPath, e)
	if err != nil {
		u.err = err
		return
	}
	targetNode, err := u.store.CreateNode(u.ctx, nil, e.Target())
	if err != nil {
		u.err = err
		return
	}
	nodes := append(parentNodes, targetNode)
	u.cache.addPath(newPath, newInfo, e.RID(), nodes)
}

func (u *viewUpdater) CycleDetected(pathinfo.Path, relationship.Relationship) {
	u.cyclesFound = true
}

func (u *viewUpdater) TraverseComplete() {}

// resolveNodes reconstructs the node sequence (root through the
// declaring node of e, inclusive) that currentPath denotes. A non-empty
// Path's RID chain determines its node sequence deterministically (each
// edge's Declaring coordinate is its predecessor's Target); the empty
// Path's sole node is e's own Declaring coordinate, i.e. the root this
// branch started from.
func (u *viewUpdater) resolveNodes(currentPath pathinfo.Path, e relationship.Relationship) ([]graphid.NID, error) {
	if currentPath.IsEmpty() {
		root, err := u.store.CreateNode(u.ctx, nil, e.Declaring())
		if err != nil {
			return nil, err
		}
		return []graphid.NID{root}, nil
	}
	rids := currentPath.RIDs()
	first, err := u.store.Edge(u.ctx, rids[0])
	if err != nil {
		return nil, fmt.Errorf("view: resolving path node sequence: %w", err)
	}
	root, err := u.store.CreateNode(u.ctx, nil, first.Declaring())
	if err != nil {
		return nil, err
	}
	nodes := make([]graphid.NID, 0, len(rids)+1)
	nodes = append(nodes, root)
	for i, rid := range rids {
		rel := first
		if i > 0 {
			rel, err = u.store.Edge(u.ctx, rid)
			if err != nil {
				return nil, fmt.Errorf("view: resolving path node sequence: %w", err)
			}
		}
		n, err := u.store.CreateNode(u.ctx, nil, rel.Target())
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
