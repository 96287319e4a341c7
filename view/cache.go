package view

import (
	"sync"

	"github.com/bxf12315/depgraph/graphid"
	"github.com/bxf12315/depgraph/pathinfo"
)

// pathEntry is one materialized non-root row of a view's path-cache: the
// Path itself, its terminal PathInfo, and the node sequence (root
// through target, inclusive) it touches — kept alongside Paths so the
// contains_node/target_node indices can be built without re-walking
// edges. Non-empty Paths are uniquely keyed by their RID chain (an edge's
// Declaring coordinate is always its predecessor's Target, so the chain
// determines the node sequence deterministically); the empty (root) Path
// is handled separately in roots below, since a view may have several
// roots that would otherwise collide on the same empty Path.Key().
type pathEntry struct {
	path  pathinfo.Path
	info  pathinfo.Info
	nodes []graphid.NID
}

// Cache is the per-view materialized state spec.md §3 calls ViewCache:
// Nodes (membership), Edges (edges crossed by at least one accepted
// path), Paths (every accepted root-to-node path with its terminal
// PathInfo), additionally indexed by contains_node and target_node so
// "queries can fetch all paths that pass through a node or terminate at
// a node in O(result-size)".
type Cache struct {
	mu sync.RWMutex

	roots map[graphid.NID]pathinfo.Info // root node -> its initial PathInfo

	nodes map[graphid.NID]struct{}
	edges map[graphid.RID]struct{}
	paths map[string]pathEntry // non-root paths, keyed by Path.Key()

	containsIndex map[graphid.NID]map[string]struct{} // node -> non-root path keys touching it
	targetIndex   map[graphid.NID]map[string]struct{} // node -> non-root path keys terminating there
}

func newCache() *Cache {
	return &Cache{
		roots:         map[graphid.NID]pathinfo.Info{},
		nodes:         map[graphid.NID]struct{}{},
		edges:         map[graphid.RID]struct{}{},
		paths:         map[string]pathEntry{},
		containsIndex: map[graphid.NID]map[string]struct{}{},
		targetIndex:   map[graphid.NID]map[string]struct{}{},
	}
}

// addRoot seeds the cache with root as both a member node and the target
// of a synthetic empty path — spec.md §4.6 step 2: "initialize its
// path-cache with a synthetic empty Path from the view node to each
// root, marking each root in Nodes and an edgeless cached path record in
// Paths."
func (c *Cache) addRoot(root graphid.NID, info pathinfo.Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes[root] = struct{}{}
	c.roots[root] = info
}

// addPath records a newly accepted non-root path whose node sequence
// (root through the edge's target, inclusive) is nodes, and whose final
// edge is rid.
func (c *Cache) addPath(p pathinfo.Path, info pathinfo.Info, rid graphid.RID, nodes []graphid.NID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edges[rid] = struct{}{}
	for _, n := range nodes {
		c.nodes[n] = struct{}{}
	}
	key := p.Key()
	c.paths[key] = pathEntry{path: p, info: info, nodes: append([]graphid.NID(nil), nodes...)}
	for _, n := range nodes {
		if c.containsIndex[n] == nil {
			c.containsIndex[n] = map[string]struct{}{}
		}
		c.containsIndex[n][key] = struct{}{}
	}
	target := nodes[len(nodes)-1]
	if c.targetIndex[target] == nil {
		c.targetIndex[target] = map[string]struct{}{}
	}
	c.targetIndex[target][key] = struct{}{}
}

// Nodes returns every node cached as a view member.
func (c *Cache) Nodes() []graphid.NID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]graphid.NID, 0, len(c.nodes))
	for n := range c.nodes {
		out = append(out, n)
	}
	return out
}

// ContainsNode reports whether node is a cached member of the view.
func (c *Cache) ContainsNode(node graphid.NID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.nodes[node]
	return ok
}

// Edges returns every edge identifier crossed by at least one accepted
// path.
func (c *Cache) Edges() []graphid.RID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]graphid.RID, 0, len(c.edges))
	for e := range c.edges {
		out = append(out, e)
	}
	return out
}

// Paths returns every cached path, including each root's synthetic empty
// path.
func (c *Cache) Paths() []pathinfo.Path {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]pathinfo.Path, 0, len(c.paths)+len(c.roots))
	for range c.roots {
		out = append(out, pathinfo.Empty())
	}
	for _, e := range c.paths {
		out = append(out, e.path)
	}
	return out
}

// InfoFor returns the cached PathInfo terminal to p at node, if cached.
// node disambiguates the empty Path across a view's several roots.
func (c *Cache) InfoFor(p pathinfo.Path, node graphid.NID) (pathinfo.Info, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p.IsEmpty() {
		info, ok := c.roots[node]
		return info, ok
	}
	e, ok := c.paths[p.Key()]
	return e.info, ok
}

// PathsContaining returns every cached path that passes through node,
// including node's own synthetic root path if node is a root.
func (c *Cache) PathsContaining(node graphid.NID) []pathinfo.Path {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []pathinfo.Path
	if _, ok := c.roots[node]; ok {
		out = append(out, pathinfo.Empty())
	}
	for k := range c.containsIndex[node] {
		out = append(out, c.paths[k].path)
	}
	return out
}

// PathsTargeting returns every cached path whose last node is node,
// including the synthetic root path if node is itself a root.
func (c *Cache) PathsTargeting(node graphid.NID) []pathinfo.Path {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []pathinfo.Path
	if _, ok := c.roots[node]; ok {
		out = append(out, pathinfo.Empty())
	}
	for k := range c.targetIndex[node] {
		out = append(out, c.paths[k].path)
	}
	return out
}

