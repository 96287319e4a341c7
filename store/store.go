// Package store defines the narrow property-graph interface the core
// depends on and never implements directly: spec.md §1 calls the
// underlying graph database, Maven parsing and any CLI/REST surface
// "external collaborators consumed through the store interface of §6".
// Everything in traverse, view, cycle and query is written against Store
// alone; package memstore is the in-memory reference implementation used
// to test them, the way cuelang.org/go/internal/mod is tested against
// internal/registrytest's fake registry rather than a real module proxy.
package store

import (
	"context"

	"github.com/bxf12315/depgraph/coordinate"
	"github.com/bxf12315/depgraph/graphid"
	"github.com/bxf12315/depgraph/relationship"
)

// NodeRecord is the persisted shape of a graph node: its coordinate plus
// the per-node properties spec.md §6 requires ("canonical coordinate
// (GA, GAV), variable flag, metadata map, connected flag").
type NodeRecord struct {
	ID         graphid.NID
	Coordinate coordinate.Coordinate
	Variable   bool
	Connected  bool
	Metadata   map[string]string
}

// EdgeFilter restricts OutgoingEdges/IncomingEdges to a set of
// relationship kinds; a nil or empty Kinds matches every kind.
type EdgeFilter struct {
	Kinds []relationship.Kind
}

// Tx is a store transaction: per spec.md §6's "begin/commit/abort a
// transaction" and §7's "transaction failures abort the whole batch".
// Mutating Store methods that accept a Tx apply within it; passing a nil
// Tx performs an auto-committing single-operation transaction.
type Tx interface {
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// QueryResult is the row-set returned by an optional declarative query
// passthrough (spec.md §6: "run a declarative query string with
// positional parameters (optional; the query API uses it only for
// extended analytics)"). Row values are driver-native (string, int64,
// float64, bool, nil, or nested []any/map[string]any).
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// Store is the property-graph abstraction the core traversal, view,
// cycle and query packages are written against. A concrete
// implementation owns node/edge identity, indexing and persistence; the
// core never reaches past this interface.
type Store interface {
	// BeginTx starts a transaction; pass its result to the mutating
	// methods below, and Commit or Abort it when done.
	BeginTx(ctx context.Context) (Tx, error)

	// CreateNode creates (or returns the existing) node for c, keyed by
	// its canonical GAV, within tx (nil for auto-commit).
	CreateNode(ctx context.Context, tx Tx, c coordinate.Coordinate) (graphid.NID, error)

	// CreateEdge persists rel as a new edge between its Declaring and
	// Target coordinates' nodes (created if necessary) within tx, and
	// returns rel with its RID populated. Per spec.md §7, a failure
	// mid-batch (InvalidVersion) is the caller's signal to drop this one
	// edge and continue the batch, not abort it.
	CreateEdge(ctx context.Context, tx Tx, rel relationship.Relationship) (relationship.Relationship, error)

	// NodesByProperty looks up nodes by an indexed property value — e.g.
	// all nodes whose GA matches a given GA.
	NodesByProperty(ctx context.Context, index string, key string) ([]graphid.NID, error)

	// EdgesByProperty looks up edges by an indexed property value — e.g.
	// all edges declared by a given POM location.
	EdgesByProperty(ctx context.Context, index string, key string) ([]graphid.RID, error)

	// OutgoingEdges returns the edges leaving node, restricted to filter's
	// kind set.
	OutgoingEdges(ctx context.Context, node graphid.NID, filter EdgeFilter) ([]graphid.RID, error)

	// IncomingEdges returns the edges entering node, restricted to
	// filter's kind set.
	IncomingEdges(ctx context.Context, node graphid.NID, filter EdgeFilter) ([]graphid.RID, error)

	// Node returns the persisted record for id.
	Node(ctx context.Context, id graphid.NID) (NodeRecord, error)

	// Edge returns the persisted relationship for id.
	Edge(ctx context.Context, id graphid.RID) (relationship.Relationship, error)

	// SetNodeProperty sets a free-form metadata property on a node.
	SetNodeProperty(ctx context.Context, tx Tx, node graphid.NID, key, value string) error
	// NodeProperty gets a free-form metadata property on a node.
	NodeProperty(ctx context.Context, node graphid.NID, key string) (value string, ok bool, err error)
	// RemoveNodeProperty removes a free-form metadata property from a node.
	RemoveNodeProperty(ctx context.Context, tx Tx, node graphid.NID, key string) error

	// SetEdgeProperty sets a free-form property on an edge (for per-view
	// edge properties such as cycle-pending flags).
	SetEdgeProperty(ctx context.Context, tx Tx, edge graphid.RID, key, value string) error
	// EdgeProperty gets a free-form property on an edge.
	EdgeProperty(ctx context.Context, edge graphid.RID, key string) (value string, ok bool, err error)
	// RemoveEdgeProperty removes a free-form property from an edge.
	RemoveEdgeProperty(ctx context.Context, tx Tx, edge graphid.RID, key string) error

	// IndexMembers enumerates the members of a named secondary index —
	// e.g. "missing-nodes", "variable-nodes", "all-cycles" — without
	// requiring a specific key, per spec.md §6's full index list.
	IndexMembers(ctx context.Context, index string) ([]graphid.NID, error)

	// Query runs an optional declarative query string with positional
	// parameters. Implementations that don't support this may return an
	// InvalidArgument *Error (memstore does); the core query package only calls it for
	// extended analytics beyond the operations above.
	Query(ctx context.Context, query string, args ...any) (QueryResult, error)

	// Close shuts the store down. After Close, every other method must
	// return an error satisfying Is(err, StoreClosed).
	Close(ctx context.Context) error
}
