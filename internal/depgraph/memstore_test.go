package depgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_PersistAndRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	defer store.Close()

	g := &Graph{
		Nodes: []Node{
			{Key: "a.go:10:leak", File: "a.go", Line: 10, Function: "Serve"},
			{Key: "a.go:15:race", File: "a.go", Line: 15, Function: "Serve"},
			{Key: "b.go:5:style", File: "b.go", Line: 5},
		},
		Edges: []Edge{
			{From: "a.go:10:leak", To: "a.go:15:race", Weight: 2},
		},
	}

	require.NoError(t, Persist(ctx, store, g))

	nodes, err := store.Issues(ctx)
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
	assert.Equal(t, "a.go:10:leak", nodes[0].Key)

	edges, err := store.Edges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 2, edges[0].Weight)

	deps, err := store.Dependents(ctx, "a.go:15:race")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go:10:leak"}, deps)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.IssueCount)
	assert.Equal(t, 1, stats.EdgeCount)
}

func TestMemStore_AddIssueUpsertsByKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	require.NoError(t, store.AddIssue(ctx, Node{Key: "k", File: "a.go", Line: 1}))
	require.NoError(t, store.AddIssue(ctx, Node{Key: "k", File: "a.go", Line: 1, Function: "F"}))

	nodes, err := store.Issues(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "F", nodes[0].Function)
}

func TestMemStore_DependentsEmpty(t *testing.T) {
	store := NewMemStore()
	deps, err := store.Dependents(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, deps)
}
