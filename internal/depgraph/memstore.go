package depgraph

import (
	"context"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu    sync.RWMutex
	nodes map[string]Node
	order []string // insertion-order keys
	edges []Edge
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[string]Node)}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddIssue stores a node keyed by its issue key.
func (m *MemStore) AddIssue(_ context.Context, node Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.nodes[node.Key]; !exists {
		m.order = append(m.order, node.Key)
	}
	m.nodes[node.Key] = node
	return nil
}

// AddEdge appends an edge to the internal slice.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edge)
	return nil
}

// Issues returns every stored node in insertion order.
func (m *MemStore) Issues(_ context.Context) ([]Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Node, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.nodes[key])
	}
	return out, nil
}

// Edges returns a copy of all stored edges.
func (m *MemStore) Edges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// Dependents returns the keys with an edge into key.
func (m *MemStore) Dependents(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, e := range m.edges {
		if e.To == key {
			out = append(out, e.From)
		}
	}
	return out, nil
}

// Stats returns node and edge counts.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Stats{IssueCount: len(m.nodes), EdgeCount: len(m.edges)}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}
