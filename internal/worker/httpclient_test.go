package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/mend/internal/issue"
	"github.com/dusk-indust/mend/internal/schedule"
)

// stubWorker returns canned results for transport tests.
type stubWorker struct {
	id        string
	result    *Result
	reply     *ConflictReply
	err       error
	lastBatch schedule.Batch
}

func (s *stubWorker) ID() string { return s.id }

func (s *stubWorker) Dispatch(ctx context.Context, batch schedule.Batch) (*Result, error) {
	s.lastBatch = batch
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubWorker) ReviewConflict(ctx context.Context, q ConflictQuery) (*ConflictReply, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

func newTestServer(t *testing.T, stub *stubWorker, card Card) *httptest.Server {
	t.Helper()
	srv := NewServer(card, stub)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestRemote_DispatchRoundTrip(t *testing.T) {
	iss := issue.Issue{File: "a.go", Line: 3, Severity: issue.SeverityMedium, Category: "leak", Description: "d"}
	want := &Result{
		BatchID:  "b0-0",
		WorkerID: "stub",
		Status:   StatusComplete,
		Decisions: []IssueDecision{{
			Key:      iss.Key(),
			Decision: issue.Decision{State: issue.StateFixed, BatchID: "b0-0", ArtifactRef: "fix.md"},
		}},
	}
	stub := &stubWorker{id: "stub", result: want}
	ts := newTestServer(t, stub, Card{Name: "stub", MaxBatch: 5})

	remote := NewRemote("stub", ts.URL)
	got, err := remote.Dispatch(context.Background(), schedule.Batch{ID: "b0-0", Issues: []issue.Issue{iss}})
	require.NoError(t, err)
	assert.Equal(t, want.BatchID, got.BatchID)
	assert.Equal(t, want.Decisions, got.Decisions)
	assert.Equal(t, "b0-0", stub.lastBatch.ID)
}

func TestRemote_BatchTooLargeRejected(t *testing.T) {
	stub := &stubWorker{id: "stub", result: &Result{BatchID: "big"}}
	ts := newTestServer(t, stub, Card{Name: "stub", MaxBatch: 1})

	batch := schedule.Batch{ID: "big", Issues: []issue.Issue{
		{File: "a.go", Line: 1, Category: "x"},
		{File: "a.go", Line: 2, Category: "y"},
	}}

	remote := NewRemote("stub", ts.URL)
	_, err := remote.Dispatch(context.Background(), batch)
	require.Error(t, err)

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, ErrCodeBatchTooLarge, rpcErr.Code)
}

func TestRemote_ReviewConflict(t *testing.T) {
	stub := &stubWorker{id: "stub", reply: &ConflictReply{BatchID: "b1-0", Verdict: VerdictAdjusted, Revised: "fix2.md"}}
	ts := newTestServer(t, stub, Card{Name: "stub"})

	remote := NewRemote("stub", ts.URL)
	reply, err := remote.ReviewConflict(context.Background(), ConflictQuery{BatchID: "b1-0", Artifact: "fix.md", Round: 1})
	require.NoError(t, err)
	assert.Equal(t, VerdictAdjusted, reply.Verdict)
	assert.Equal(t, "fix2.md", reply.Revised)
}

func TestRemote_GetResultAfterDispatch(t *testing.T) {
	want := &Result{BatchID: "b0-0", WorkerID: "stub", Status: StatusComplete}
	stub := &stubWorker{id: "stub", result: want}
	ts := newTestServer(t, stub, Card{Name: "stub"})

	remote := NewRemote("stub", ts.URL)
	_, err := remote.Dispatch(context.Background(), schedule.Batch{ID: "b0-0"})
	require.NoError(t, err)

	got, err := remote.GetResult(context.Background(), "b0-0")
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)

	_, err = remote.GetResult(context.Background(), "nope")
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, ErrCodeBatchNotFound, rpcErr.Code)
}

func TestRemote_MethodNotFound(t *testing.T) {
	stub := &stubWorker{id: "stub"}
	ts := newTestServer(t, stub, Card{Name: "stub"})

	remote := NewRemote("stub", ts.URL)
	err := remote.call(context.Background(), "bogus/method", nil, nil)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, ErrCodeMethodNotFound, rpcErr.Code)
}

func TestDiscoverWorker(t *testing.T) {
	card := Card{Name: "fixer", Version: "1.0.0", MaxBatch: 5, Endpoint: "http://fixer.local"}
	ts := newTestServer(t, &stubWorker{id: "fixer"}, card)

	got, err := DiscoverWorker(context.Background(), nil, ts.URL)
	require.NoError(t, err)
	assert.Equal(t, &card, got)
}

func TestDiscoverWorker_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := DiscoverWorker(context.Background(), nil, ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
