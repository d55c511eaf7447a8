package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/dusk-indust/mend/internal/issue"
	"github.com/dusk-indust/mend/internal/worker"
)

// MaxReviewRounds bounds reconciliation. A conflict still open after this
// many rounds escalates instead of looping.
const MaxReviewRounds = 2

// ConflictOutcome is the final disposition of one artifact conflict.
type ConflictOutcome string

const (
	// OutcomeNoConflict means both sides verified their changes as
	// compatible.
	OutcomeNoConflict ConflictOutcome = "no-conflict"
	// OutcomeMerged means at least one side produced an adjusted change.
	OutcomeMerged ConflictOutcome = "merged"
	// OutcomeEscalated means the rounds ran out; the affected fixes are
	// downgraded to blocked for human review.
	OutcomeEscalated ConflictOutcome = "escalated"
)

// ConflictReport records how one overlapping-artifact conflict between two
// batches was settled.
type ConflictReport struct {
	Artifact string          `json:"artifact"`
	BatchA   string          `json:"batchA"`
	BatchB   string          `json:"batchB"`
	Outcome  ConflictOutcome `json:"outcome"`
	Rounds   int             `json:"rounds"`
}

// Coordinator detects overlapping artifact changes between the batches of
// one layer and drives the bounded review rounds.
type Coordinator struct {
	onProgress func(ProgressEvent)
}

// NewCoordinator creates a Coordinator. onProgress may be nil.
func NewCoordinator(onProgress func(ProgressEvent)) *Coordinator {
	return &Coordinator{onProgress: onProgress}
}

// Reconcile finds every artifact touched by more than one batch in the
// layer and resolves each pair. Merged conflicts amend the winning
// artifact references in the store; escalated conflicts downgrade the
// affected fixed decisions on both sides.
func (c *Coordinator) Reconcile(ctx context.Context, outcomes []BatchOutcome, store *issue.Store) []ConflictReport {
	touchedBy := make(map[string][]int)
	for i, out := range outcomes {
		seen := make(map[string]bool)
		for _, path := range out.Result.Touched {
			if !seen[path] {
				seen[path] = true
				touchedBy[path] = append(touchedBy[path], i)
			}
		}
	}

	var paths []string
	for path, holders := range touchedBy {
		if len(holders) > 1 {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	var reports []ConflictReport
	for _, path := range paths {
		holders := touchedBy[path]
		for i := 0; i < len(holders); i++ {
			for j := i + 1; j < len(holders); j++ {
				report := c.resolvePair(ctx, path, outcomes[holders[i]], outcomes[holders[j]], store)
				reports = append(reports, report)
			}
		}
	}

	return reports
}

// resolvePair runs up to MaxReviewRounds over one artifact conflict.
func (c *Coordinator) resolvePair(ctx context.Context, artifact string, a, b BatchOutcome, store *issue.Store) ConflictReport {
	report := ConflictReport{
		Artifact: artifact,
		BatchA:   a.Batch.ID,
		BatchB:   b.Batch.ID,
	}

	c.emit(ProgressEvent{
		Phase:   PhaseReconcile,
		Subject: fmt.Sprintf("%s (%s vs %s)", artifact, a.Batch.ID, b.Batch.ID),
		Status:  ProgressWorking,
	})

	for round := 1; round <= MaxReviewRounds; round++ {
		report.Rounds = round

		replyA, errA := a.Dispatcher.ReviewConflict(ctx, worker.ConflictQuery{
			BatchID:      a.Batch.ID,
			Artifact:     artifact,
			OtherBatchID: b.Batch.ID,
			Round:        round,
		})
		replyB, errB := b.Dispatcher.ReviewConflict(ctx, worker.ConflictQuery{
			BatchID:      b.Batch.ID,
			Artifact:     artifact,
			OtherBatchID: a.Batch.ID,
			Round:        round,
		})

		// A transport failure burns the round and the conflict stays open.
		if err := errors.Join(errA, errB); err != nil {
			log.Printf("conflict: %s round %d review failed: %v", artifact, round, err)
			continue
		}

		if replyA.Verdict == worker.VerdictAdjusted || replyB.Verdict == worker.VerdictAdjusted {
			report.Outcome = OutcomeMerged
			if replyA.Verdict == worker.VerdictAdjusted {
				c.amend(store, a, artifact, replyA.Revised)
			}
			if replyB.Verdict == worker.VerdictAdjusted {
				c.amend(store, b, artifact, replyB.Revised)
			}
			c.emit(ProgressEvent{Phase: PhaseReconcile, Subject: artifact, Status: ProgressComplete, Message: string(OutcomeMerged)})
			return report
		}

		if replyA.Verdict == worker.VerdictHolds && replyB.Verdict == worker.VerdictHolds {
			report.Outcome = OutcomeNoConflict
			c.emit(ProgressEvent{Phase: PhaseReconcile, Subject: artifact, Status: ProgressComplete, Message: string(OutcomeNoConflict)})
			return report
		}

		// At least one side declared a conflict; go around again.
	}

	report.Outcome = OutcomeEscalated
	report.Rounds = MaxReviewRounds
	c.downgrade(store, a, artifact)
	c.downgrade(store, b, artifact)
	c.emit(ProgressEvent{Phase: PhaseReconcile, Subject: artifact, Status: ProgressFailed, Message: string(OutcomeEscalated)})
	return report
}

// amend rewrites the artifact reference of the fixed decisions that touch
// the conflicted artifact. An empty revised reference keeps the original.
func (c *Coordinator) amend(store *issue.Store, out BatchOutcome, artifact, revised string) {
	if revised == "" {
		return
	}
	for _, key := range fixedKeysTouching(out, artifact) {
		if err := store.AmendArtifact(key, revised); err != nil {
			log.Printf("conflict: amend %s: %v", key, err)
		}
	}
}

// downgrade blocks the fixed decisions that touch the conflicted artifact.
func (c *Coordinator) downgrade(store *issue.Store, out BatchOutcome, artifact string) {
	reason := fmt.Sprintf("unresolved conflict on %s after %d review rounds", artifact, MaxReviewRounds)
	for _, key := range fixedKeysTouching(out, artifact) {
		if err := store.Downgrade(key, reason); err != nil {
			log.Printf("conflict: downgrade %s: %v", key, err)
		}
	}
}

// fixedKeysTouching returns the keys of the batch's fixed decisions that
// modified the conflicted artifact. Decisions without an explicit touched
// list fall back to matching their key's source file.
func fixedKeysTouching(out BatchOutcome, artifact string) []string {
	var keys []string
	for _, d := range out.Result.Decisions {
		if d.Decision.State != issue.StateFixed {
			continue
		}
		touched := keyFile(d.Key) == artifact
		for _, path := range d.Touched {
			if path == artifact {
				touched = true
				break
			}
		}
		if touched {
			keys = append(keys, d.Key)
		}
	}
	return keys
}

// keyFile strips the trailing line and category fields from an issue key.
func keyFile(key string) string {
	i := strings.LastIndex(key, ":")
	if i < 0 {
		return key
	}
	j := strings.LastIndex(key[:i], ":")
	if j < 0 {
		return key
	}
	return key[:j]
}

func (c *Coordinator) emit(ev ProgressEvent) {
	if c.onProgress != nil {
		c.onProgress(ev)
	}
}
