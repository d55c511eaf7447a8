package worker

import (
	"context"
	"time"

	"github.com/dusk-indust/mend/internal/issue"
	"github.com/dusk-indust/mend/internal/schedule"
)

// Status is the batch-level outcome reported by a worker.
type Status string

const (
	// StatusComplete means every issue in the batch received a decision.
	StatusComplete Status = "complete"
	// StatusPartial means the worker stopped early, typically on timeout,
	// and some decisions are synthesized Blocked entries.
	StatusPartial Status = "partial"
	// StatusBlocked means the worker could not act on the batch at all.
	StatusBlocked Status = "blocked"
)

// IssueDecision pairs an issue key with the decision a worker made for it.
// Touched lists the artifact paths this particular decision modified; the
// conflict coordinator uses it to map artifact overlaps back to decisions.
type IssueDecision struct {
	Key      string         `json:"key"`
	Decision issue.Decision `json:"decision"`
	Touched  []string       `json:"touched,omitempty"`
}

// Result is what a worker returns for one dispatched batch. Every issue in
// the batch appears exactly once in Decisions regardless of Status.
type Result struct {
	BatchID   string          `json:"batchId"`
	WorkerID  string          `json:"workerId"`
	Status    Status          `json:"status"`
	Decisions []IssueDecision `json:"decisions"`
	// Touched lists the artifact paths the worker modified while fixing.
	Touched   []string  `json:"touched,omitempty"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

// Decision returns the decision recorded for key, or false if absent.
func (r *Result) Decision(key string) (issue.Decision, bool) {
	for _, d := range r.Decisions {
		if d.Key == key {
			return d.Decision, true
		}
	}
	return issue.Decision{}, false
}

// Verdict is a worker's answer to a conflict review round.
type Verdict string

const (
	// VerdictHolds means the worker's original change stands as-is.
	VerdictHolds Verdict = "holds"
	// VerdictAdjusted means the worker produced a revised change that
	// accounts for the other side.
	VerdictAdjusted Verdict = "adjusted"
	// VerdictConflict means the worker cannot reconcile the two changes.
	VerdictConflict Verdict = "conflict"
)

// ConflictQuery asks a worker to re-examine its change to an artifact that
// another batch also modified.
type ConflictQuery struct {
	BatchID      string `json:"batchId"`
	Artifact     string `json:"artifact"`
	OtherBatchID string `json:"otherBatchId"`
	Round        int    `json:"round"`
}

// ConflictReply carries the verdict and, when adjusted, the revised
// artifact reference.
type ConflictReply struct {
	BatchID   string  `json:"batchId"`
	Verdict   Verdict `json:"verdict"`
	Revised   string  `json:"revised,omitempty"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// Dispatcher is the contract between the orchestrator and a worker. A
// worker receives whole batches and must decide every issue in them; the
// orchestrator never inspects how the worker produced its decisions.
type Dispatcher interface {
	// Dispatch hands a batch to the worker and blocks until it returns a
	// result or ctx expires.
	Dispatch(ctx context.Context, batch schedule.Batch) (*Result, error)

	// ReviewConflict asks the worker to reconcile an overlapping change.
	ReviewConflict(ctx context.Context, q ConflictQuery) (*ConflictReply, error)

	// ID identifies the worker in results and logs.
	ID() string
}

// Card is the self-describing manifest a remote worker serves at its
// well-known URI so the orchestrator can probe capabilities before
// dispatching.
type Card struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	MaxBatch   int      `json:"maxBatch"`
	Categories []string `json:"categories,omitempty"`
	Endpoint   string   `json:"endpoint"`
}
