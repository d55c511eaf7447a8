package depgraph

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/dusk-indust/mend/internal/issue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLocator resolves enclosing functions from a fixed map keyed by
// "file:line".
type stubLocator struct {
	funcs map[string]string
	err   error
}

func (s *stubLocator) EnclosingFunction(_ context.Context, file string, line int) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.funcs[fmt.Sprintf("%s:%d", file, line)], nil
}

func makeIssue(file string, line int, category string) issue.Issue {
	return issue.Issue{
		File:        file,
		Line:        line,
		Severity:    issue.SeverityMedium,
		Category:    category,
		Description: "d",
	}
}

func TestAnalyzer_SameFileCloseLines_OneEdge(t *testing.T) {
	// Two issues in the same file, 5 lines apart: same-file signal plus
	// proximity signal.
	issues := []issue.Issue{
		makeIssue("svc/handler.go", 10, "leak"),
		makeIssue("svc/handler.go", 15, "race"),
	}

	a := NewAnalyzer(30, nil)
	g, err := a.Analyze(context.Background(), issues)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 2, g.Edges[0].Weight)
	// Direction is always lower key -> higher key.
	assert.Less(t, g.Edges[0].From, g.Edges[0].To)
}

func TestAnalyzer_ScoreTable(t *testing.T) {
	loc := &stubLocator{funcs: map[string]string{
		"a.go:10": "Serve",
		"a.go:90": "Serve",
		"a.go:12": "Init",
	}}
	a := NewAnalyzer(30, loc)

	tests := []struct {
		name       string
		issues     []issue.Issue
		wantEdges  int
		wantWeight int
	}{
		{
			name:       "same file same function far apart",
			issues:     []issue.Issue{makeIssue("a.go", 10, "x"), makeIssue("a.go", 90, "y")},
			wantEdges:  1,
			wantWeight: 2,
		},
		{
			name:       "same file different function inside window",
			issues:     []issue.Issue{makeIssue("a.go", 10, "x"), makeIssue("a.go", 12, "y")},
			wantEdges:  1,
			wantWeight: 2,
		},
		{
			name:       "same file different function outside window",
			issues:     []issue.Issue{makeIssue("a.go", 12, "x"), makeIssue("a.go", 90, "y")},
			wantEdges:  1,
			wantWeight: 1,
		},
		{
			name:      "different files",
			issues:    []issue.Issue{makeIssue("a.go", 10, "x"), makeIssue("b.go", 11, "y")},
			wantEdges: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := a.Analyze(context.Background(), tt.issues)
			require.NoError(t, err)
			require.Len(t, g.Edges, tt.wantEdges)
			if tt.wantEdges > 0 {
				assert.Equal(t, tt.wantWeight, g.Edges[0].Weight)
			}
		})
	}
}

func TestAnalyzer_Deterministic_AnyInputOrder(t *testing.T) {
	issues := []issue.Issue{
		makeIssue("a.go", 10, "leak"),
		makeIssue("a.go", 25, "race"),
		makeIssue("a.go", 200, "leak"),
		makeIssue("b.go", 5, "style"),
		makeIssue("b.go", 500, "race"),
		makeIssue("c.go", 7, "leak"),
	}

	a := NewAnalyzer(30, nil)
	base, err := a.Analyze(context.Background(), issues)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := make([]issue.Issue, len(issues))
		copy(shuffled, issues)
		rng.Shuffle(len(shuffled), func(x, y int) { shuffled[x], shuffled[y] = shuffled[y], shuffled[x] })

		g, err := a.Analyze(context.Background(), shuffled)
		require.NoError(t, err)
		assert.Equal(t, base.Nodes, g.Nodes)
		assert.Equal(t, base.Edges, g.Edges)
	}
}

func TestAnalyzer_AcyclicByConstruction(t *testing.T) {
	// A dense same-file cluster produces many edges; verify there is no
	// directed cycle by checking every edge goes strictly upward in key
	// order.
	var issues []issue.Issue
	for i := 1; i <= 8; i++ {
		issues = append(issues, makeIssue("hot.go", i*3, "leak"))
	}

	a := NewAnalyzer(30, nil)
	g, err := a.Analyze(context.Background(), issues)
	require.NoError(t, err)
	require.NotEmpty(t, g.Edges)

	for _, e := range g.Edges {
		assert.Less(t, e.From, e.To, "edge %s -> %s must point to the higher key", e.From, e.To)
	}
}

func TestAnalyzer_LocatorFailureIsWarningNotError(t *testing.T) {
	loc := &stubLocator{err: errors.New("no such file")}
	a := NewAnalyzer(30, loc)

	g, err := a.Analyze(context.Background(), []issue.Issue{
		makeIssue("gone.go", 10, "leak"),
		makeIssue("gone.go", 12, "race"),
	})
	require.NoError(t, err)
	assert.Len(t, g.Warnings, 2)
	// Analysis falls back to file and proximity signals.
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 2, g.Edges[0].Weight)
}

func TestAnalyzer_DuplicateKeyWarned(t *testing.T) {
	a := NewAnalyzer(30, nil)
	g, err := a.Analyze(context.Background(), []issue.Issue{
		makeIssue("a.go", 10, "leak"),
		makeIssue("a.go", 10, "leak"),
	})
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
	require.Len(t, g.Warnings, 1)
	assert.Contains(t, g.Warnings[0], "duplicate issue key")
}

func TestGraph_Related(t *testing.T) {
	g := &Graph{Edges: []Edge{{From: "a", To: "b", Weight: 2}}}

	w, ok := g.Related("a", "b")
	require.True(t, ok)
	assert.Equal(t, 2, w)

	w, ok = g.Related("b", "a")
	require.True(t, ok)
	assert.Equal(t, 2, w)

	_, ok = g.Related("a", "c")
	assert.False(t, ok)
}
