package orchestrator

import (
	"context"

	"github.com/dusk-indust/mend/internal/issue"
)

// Phase identifies a stage of a resolution run.
type Phase string

const (
	PhaseIngest    Phase = "ingest"
	PhaseAnalyze   Phase = "analyze"
	PhasePlan      Phase = "plan"
	PhaseDispatch  Phase = "dispatch"
	PhaseReconcile Phase = "reconcile"
	PhaseAggregate Phase = "aggregate"
)

// ProgressStatus is the state of a subject within a phase.
type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressWorking  ProgressStatus = "working"
	ProgressComplete ProgressStatus = "complete"
	ProgressFailed   ProgressStatus = "failed"
)

// ProgressEvent is emitted to the user during a run. Subject is the batch
// id during dispatch and reconcile, or a phase-level label otherwise.
type ProgressEvent struct {
	Phase   Phase
	Subject string
	Status  ProgressStatus
	Message string
}

// Orchestrator drives a full resolution run over a set of reported issues.
type Orchestrator interface {
	// Run executes the pipeline end to end and returns the final ledger.
	Run(ctx context.Context, issues []issue.Issue) (*Ledger, error)

	// Progress returns a channel that emits progress events.
	Progress() <-chan ProgressEvent
}
