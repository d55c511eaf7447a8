package depgraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/dusk-indust/mend/internal/issue"
)

// DefaultLineWindow is the line-distance window for the proximity signal.
const DefaultLineWindow = 30

// Locator resolves the enclosing function for a source location.
// Implementations: TreeSitterLocator (production), NoopLocator (no source
// access), stubs in tests.
type Locator interface {
	// EnclosingFunction returns the name of the innermost function
	// containing line in file, or "" when the location is not inside a
	// function.
	EnclosingFunction(ctx context.Context, file string, line int) (string, error)
}

// NoopLocator resolves nothing. The analyzer then falls back to file and
// line-distance signals only.
type NoopLocator struct{}

func (NoopLocator) EnclosingFunction(context.Context, string, int) (string, error) {
	return "", nil
}

// Analyzer derives the dependency DAG over an issue set from structural
// overlap signals.
type Analyzer struct {
	window  int
	locator Locator
}

// NewAnalyzer creates an Analyzer. A window <= 0 falls back to
// DefaultLineWindow; a nil locator falls back to NoopLocator.
func NewAnalyzer(window int, locator Locator) *Analyzer {
	if window <= 0 {
		window = DefaultLineWindow
	}
	if locator == nil {
		locator = NoopLocator{}
	}
	return &Analyzer{window: window, locator: locator}
}

// Analyze computes the overlap score for every unordered issue pair and
// turns every pair scoring >= 1 into a directed edge from the lower issue
// key to the higher one. Because the direction is fixed by key order the
// result can never contain a cycle, so no cycle detection is needed.
//
// The scoring table:
//   - same file, same enclosing function: 2
//   - same file only: 1, plus 1 when the line distance is inside the
//     window and the functions differ
//   - different files: 0
//
// Given the same issue list in any order, Analyze produces the same graph:
// nodes and pairs are visited in sorted key order, never map order.
func (a *Analyzer) Analyze(ctx context.Context, issues []issue.Issue) (*Graph, error) {
	g := &Graph{}

	byKey := make(map[string]Node, len(issues))
	for _, iss := range issues {
		key := iss.Key()
		if _, seen := byKey[key]; seen {
			g.Warnings = append(g.Warnings, fmt.Sprintf("duplicate issue key %s ignored", key))
			continue
		}

		fn, err := a.locator.EnclosingFunction(ctx, iss.File, iss.Line)
		if err != nil {
			// Missing or unparseable source weakens the signal but never
			// fails the analysis.
			g.Warnings = append(g.Warnings, fmt.Sprintf("locate %s:%d: %v", iss.File, iss.Line, err))
			fn = ""
		}

		byKey[key] = Node{Key: key, File: iss.File, Line: iss.Line, Function: fn}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		g.Nodes = append(g.Nodes, byKey[k])
	}

	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			lo, hi := byKey[keys[i]], byKey[keys[j]]
			w := a.overlapScore(lo, hi)
			if w < 1 {
				continue
			}
			g.Edges = append(g.Edges, Edge{From: lo.Key, To: hi.Key, Weight: w})
		}
	}

	return g, nil
}

// overlapScore implements the scoring table above.
func (a *Analyzer) overlapScore(x, y Node) int {
	if x.File != y.File {
		return 0
	}
	if x.Function != "" && x.Function == y.Function {
		return 2
	}
	score := 1
	if absInt(x.Line-y.Line) < a.window {
		score++
	}
	return score
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
