package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/mend/internal/issue"
)

func TestResultStore_PutGet(t *testing.T) {
	store := NewResultStore()

	store.Put(&Result{
		BatchID: "b0-0",
		Status:  StatusComplete,
		Decisions: []IssueDecision{{
			Key:      "a.go:1:leak",
			Decision: issue.Decision{State: issue.StateFixed, BatchID: "b0-0"},
		}},
		Touched: []string{"a.go"},
	})

	got, ok := store.Get("b0-0")
	require.True(t, ok)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, 1, store.Len())

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestResultStore_CopiesAreIsolated(t *testing.T) {
	store := NewResultStore()
	store.Put(&Result{
		BatchID:   "b0-0",
		Decisions: []IssueDecision{{Key: "k", Decision: issue.Decision{State: issue.StateFixed}}},
	})

	first, ok := store.Get("b0-0")
	require.True(t, ok)
	first.Decisions[0].Decision.State = issue.StateBlocked
	first.BatchID = "mutated"

	second, ok := store.Get("b0-0")
	require.True(t, ok)
	assert.Equal(t, "b0-0", second.BatchID)
	assert.Equal(t, issue.StateFixed, second.Decisions[0].Decision.State)
}

func TestResultStore_PutReplaces(t *testing.T) {
	store := NewResultStore()
	store.Put(&Result{BatchID: "b0-0", Status: StatusPartial})
	store.Put(&Result{BatchID: "b0-0", Status: StatusComplete})

	got, ok := store.Get("b0-0")
	require.True(t, ok)
	assert.Equal(t, StatusComplete, got.Status)
	assert.Len(t, store.All(), 1)
}
