//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/mend/internal/depgraph"
	"github.com/dusk-indust/mend/internal/export"
	"github.com/dusk-indust/mend/internal/issue"
	"github.com/dusk-indust/mend/internal/orchestrator"
	"github.com/dusk-indust/mend/internal/worker"
)

// copyFixture clones the fixture project into a temp dir so applied fixes
// never dirty testdata.
func copyFixture(t *testing.T) string {
	t.Helper()
	src := filepath.Join("..", "..", "testdata", "fixtures", "go_project")
	dst := t.TempDir()

	entries, err := os.ReadDir(src)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dst, e.Name()), data, 0o644))
	}
	return dst
}

func TestFullRunOverFixtureProject(t *testing.T) {
	root := copyFixture(t)

	issues := []issue.Issue{
		{
			File: "service.go", Line: 17, Severity: issue.SeverityHigh, Category: "errhandling",
			Description: "error wrapped without context id",
			Remediation: "include the user id in the wrapped error",
		},
		{
			File: "service.go", Line: 26, Severity: issue.SeverityCritical, Category: "design",
			Description: "constructor bypasses validation",
			Remediation: "change the exported signature of CreateUser to return validation errors, a breaking change",
		},
		{
			File: "model.go", Line: 17, Severity: issue.SeverityMedium, Category: "style",
			Description: "constructor does not set ID",
			Remediation: "document the zero ID convention on newUser",
		},
		{
			File: "model.go", Line: 400, Severity: issue.SeverityMedium, Category: "style",
			Description: "stale finding past end of file",
			Remediation: "none",
		},
		{
			File: "vanished.go", Line: 3, Severity: issue.SeverityMedium, Category: "leak",
			Description: "finding in a deleted file",
			Remediation: "close the handle",
		},
	}

	cfg := orchestrator.Config{
		ProjectRoot:  root,
		BatchSize:    3,
		BatchTimeout: time.Minute,
	}
	graphStore := depgraph.NewMemStore()
	pool := orchestrator.NewPool(worker.NewLocal("e2e-local", root))
	pipeline := orchestrator.NewPipeline(cfg, pool, depgraph.NewTreeSitterLocator(root), graphStore)

	led, err := pipeline.Run(context.Background(), issues)
	require.NoError(t, err)

	assert.Equal(t, 5, led.Counts.Total)
	assert.Equal(t, 2, led.Counts.Fixed)
	assert.Equal(t, 1, led.Counts.Deferred)
	assert.Equal(t, 1, led.Counts.FalsePositive)
	assert.Equal(t, 1, led.Counts.Blocked)

	// Applied fixes leave artifacts on disk.
	require.Len(t, led.Artifacts, 2)
	for _, ref := range led.Artifacts {
		assert.FileExists(t, ref)
	}

	// The analysis graph was persisted.
	stats, err := graphStore.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.IssueCount)
	assert.Greater(t, stats.EdgeCount, 0)

	// The ledger exports cleanly.
	var buf bytes.Buffer
	require.NoError(t, export.WriteLedgerJSON(&buf, root, led))
	assert.Contains(t, buf.String(), "service.go:17:errhandling")
}

func TestFullRunAgainstRemoteWorker(t *testing.T) {
	root := copyFixture(t)

	card := worker.Card{Name: "e2e-remote", Version: "test", MaxBatch: 5}
	srv := worker.NewServer(card, worker.NewLocal("e2e-remote", root))
	require.NoError(t, srv.Start(context.Background(), "localhost:19201"))
	defer srv.Stop(context.Background())
	time.Sleep(100 * time.Millisecond)

	pool := orchestrator.DetectWorkers(context.Background(), []string{"http://localhost:19201"}, worker.NewLocal("fallback", root))
	require.Equal(t, 1, pool.Size())

	cfg := orchestrator.Config{ProjectRoot: root, BatchTimeout: time.Minute}
	pipeline := orchestrator.NewPipeline(cfg, pool, depgraph.NewTreeSitterLocator(root), nil)

	led, err := pipeline.Run(context.Background(), []issue.Issue{
		{
			File: "model.go", Line: 17, Severity: issue.SeverityMedium, Category: "style",
			Description: "constructor does not set ID",
			Remediation: "document the zero ID convention on newUser",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, led.Counts.Fixed)
	assert.Equal(t, "b0-0", led.Fixed[0].Decision.BatchID)
}
