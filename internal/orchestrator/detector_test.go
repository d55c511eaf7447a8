package orchestrator

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/mend/internal/worker"
)

func TestDetectWorkers_FallsBackToLocal(t *testing.T) {
	fallback := &fakeWorker{id: "local"}

	pool := DetectWorkers(context.Background(), nil, fallback)
	require.Equal(t, 1, pool.Size())
	assert.Equal(t, "local", pool.Next().ID())
}

func TestDetectWorkers_DeadEndpointFallsBack(t *testing.T) {
	fallback := &fakeWorker{id: "local"}

	pool := DetectWorkers(context.Background(), []string{"http://127.0.0.1:1"}, fallback)
	require.Equal(t, 1, pool.Size())
	assert.Equal(t, "local", pool.Next().ID())
}

func TestDetectWorkers_DiscoversLiveWorker(t *testing.T) {
	card := worker.Card{Name: "fixer-1", Version: "1.0.0", MaxBatch: 5}
	srv := worker.NewServer(card, &fakeWorker{id: "fixer-1"})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	pool := DetectWorkers(context.Background(), []string{ts.URL, "http://127.0.0.1:1"}, &fakeWorker{id: "local"})
	require.Equal(t, 1, pool.Size())
	assert.Equal(t, "fixer-1", pool.Next().ID())
}
