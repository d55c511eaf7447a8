package depgraph

import (
	"context"
	"io"
)

// Store is the interface for the dependency graph backend. Implementations:
// KuzuStore (persistent, cgo), MemStore (default, testing). All graph
// persistence goes through this interface so the orchestrator never depends
// on a concrete backend.
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddIssue(ctx context.Context, node Node) error
	AddEdge(ctx context.Context, edge Edge) error

	// Read operations.
	Issues(ctx context.Context) ([]Node, error)
	Edges(ctx context.Context) ([]Edge, error)

	// Dependents returns the keys that depend on key (edges into key).
	Dependents(ctx context.Context, key string) ([]string, error)

	// Stats.
	Stats(ctx context.Context) (*Stats, error)
}

// Persist writes an analyzed graph into a store. Nodes first, then edges,
// so relationship inserts always find both endpoints.
func Persist(ctx context.Context, store Store, g *Graph) error {
	if err := store.InitSchema(ctx); err != nil {
		return err
	}
	for _, n := range g.Nodes {
		if err := store.AddIssue(ctx, n); err != nil {
			return err
		}
	}
	for _, e := range g.Edges {
		if err := store.AddEdge(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
