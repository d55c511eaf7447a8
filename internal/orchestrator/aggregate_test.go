package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/mend/internal/issue"
)

func decidedStore(t *testing.T, states map[string]issue.State) (*issue.Store, []issue.Issue) {
	t.Helper()

	issues := []issue.Issue{
		testIssue("b.go", 5, "race"),
		testIssue("a.go", 1, "leak"),
		testIssue("c.go", 9, "style"),
		testIssue("a.go", 80, "style"),
	}

	store := issue.NewStore()
	require.NoError(t, store.Ingest(issues))

	for _, iss := range issues {
		key := iss.Key()
		d := issue.Decision{State: states[key], Reasoning: "test", BatchID: "b0-0"}
		if d.State == issue.StateFixed {
			d.ArtifactRef = ".mend/fixes/" + key + ".md"
		}
		require.NoError(t, store.SetDecision(key, d))
	}
	return store, issues
}

func TestAggregate_BucketsAndCounts(t *testing.T) {
	store, _ := decidedStore(t, map[string]issue.State{
		"b.go:5:race":  issue.StateFixed,
		"a.go:1:leak":  issue.StateFixed,
		"c.go:9:style": issue.StateDeferred,
		"a.go:80:style": issue.StateFalsePositive,
	})

	led, err := Aggregate(store, nil)
	require.NoError(t, err)

	assert.Equal(t, LedgerCounts{Fixed: 2, FalsePositive: 1, Deferred: 1, Blocked: 0, Total: 4}, led.Counts)

	// Buckets are sorted by key.
	require.Len(t, led.Fixed, 2)
	assert.Equal(t, "a.go:1:leak", led.Fixed[0].Key)
	assert.Equal(t, "b.go:5:race", led.Fixed[1].Key)

	// Artifacts are collected from fixed decisions, sorted.
	assert.Equal(t, []string{
		".mend/fixes/a.go:1:leak.md",
		".mend/fixes/b.go:5:race.md",
	}, led.Artifacts)
}

func TestAggregate_CarriesConflictReports(t *testing.T) {
	store, _ := decidedStore(t, map[string]issue.State{
		"b.go:5:race":  issue.StateBlocked,
		"a.go:1:leak":  issue.StateBlocked,
		"c.go:9:style": issue.StateBlocked,
		"a.go:80:style": issue.StateBlocked,
	})

	reports := []ConflictReport{{Artifact: "a.go", BatchA: "b0-0", BatchB: "b0-1", Outcome: OutcomeEscalated, Rounds: 2}}
	led, err := Aggregate(store, reports)
	require.NoError(t, err)
	assert.Equal(t, reports, led.Conflicts)
	assert.Equal(t, 4, led.Counts.Blocked)
	assert.Empty(t, led.Artifacts)
}

func TestAggregate_PendingIssueIsAnError(t *testing.T) {
	store := issue.NewStore()
	require.NoError(t, store.Ingest([]issue.Issue{testIssue("a.go", 1, "leak")}))

	_, err := Aggregate(store, nil)
	assert.Error(t, err)
}

func TestAggregate_Deterministic(t *testing.T) {
	states := map[string]issue.State{
		"b.go:5:race":  issue.StateFixed,
		"a.go:1:leak":  issue.StateDeferred,
		"c.go:9:style": issue.StateFixed,
		"a.go:80:style": issue.StateBlocked,
	}

	storeA, _ := decidedStore(t, states)
	storeB, _ := decidedStore(t, states)

	ledA, err := Aggregate(storeA, nil)
	require.NoError(t, err)
	ledB, err := Aggregate(storeB, nil)
	require.NoError(t, err)
	assert.Equal(t, ledA, ledB)
}
