package orchestrator

import (
	"time"

	"github.com/dusk-indust/mend/internal/depgraph"
	"github.com/dusk-indust/mend/internal/schedule"
)

// DefaultBatchTimeout bounds how long a single batch may run before its
// remaining issues are blocked.
const DefaultBatchTimeout = 2 * time.Minute

// Config holds runtime configuration for a resolution run.
type Config struct {
	// ProjectRoot is the absolute path to the target project.
	ProjectRoot string

	// BatchSize is the maximum number of issues per batch (K).
	BatchSize int

	// LineWindow is the proximity window for the overlap analysis.
	LineWindow int

	// BatchTimeout is the per-batch execution deadline.
	BatchTimeout time.Duration

	// WorkerEndpoints lists remote worker base URLs to probe. Empty means
	// run everything on the in-process worker.
	WorkerEndpoints []string

	// GraphPath is where the dependency graph database is persisted.
	// Empty keeps the graph in memory only.
	GraphPath string

	// Verbose enables batch-level progress output.
	Verbose bool
}

// withDefaults fills in zero-valued fields.
func (c Config) withDefaults() Config {
	if c.BatchSize == 0 {
		c.BatchSize = schedule.DefaultBatchSize
	}
	if c.LineWindow == 0 {
		c.LineWindow = depgraph.DefaultLineWindow
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = DefaultBatchTimeout
	}
	return c
}
