package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/mend/internal/issue"
	"github.com/dusk-indust/mend/internal/schedule"
	"github.com/dusk-indust/mend/internal/worker"
)

// BatchOutcome holds the result of dispatching one batch. Result is always
// non-nil: when the dispatch itself failed, a synthesized all-Blocked
// result stands in so aggregation never sees a hole.
type BatchOutcome struct {
	Batch      schedule.Batch
	Dispatcher worker.Dispatcher
	Result     *worker.Result
	Err        error
}

// FanOut dispatches the batches of one layer to pooled workers in
// parallel. A failing batch never cancels its siblings; its issues are
// blocked and the layer carries on.
type FanOut struct {
	pool       *Pool
	timeout    time.Duration
	onProgress func(ProgressEvent)
}

// NewFanOut creates a FanOut over the pool. onProgress is called
// synchronously from each goroutine; it may be nil.
func NewFanOut(pool *Pool, timeout time.Duration, onProgress func(ProgressEvent)) *FanOut {
	return &FanOut{
		pool:       pool,
		timeout:    timeout,
		onProgress: onProgress,
	}
}

// RunLayer dispatches every batch of a layer concurrently and waits for
// all of them. Each batch gets its own deadline derived from ctx.
func (f *FanOut) RunLayer(ctx context.Context, batches []schedule.Batch) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(batches))
	g, gctx := errgroup.WithContext(ctx)

	for i, batch := range batches {
		w := f.pool.Next()
		f.emit(ProgressEvent{
			Phase:   PhaseDispatch,
			Subject: batch.ID,
			Status:  ProgressPending,
		})

		g.Go(func() error {
			f.emit(ProgressEvent{
				Phase:   PhaseDispatch,
				Subject: batch.ID,
				Status:  ProgressWorking,
			})

			batchCtx, cancel := context.WithTimeout(gctx, f.timeout)
			defer cancel()

			res, err := w.Dispatch(batchCtx, batch)
			if err != nil {
				outcomes[i] = BatchOutcome{
					Batch:      batch,
					Dispatcher: w,
					Result:     blockedResult(batch, w.ID(), err),
					Err:        err,
				}
				f.emit(ProgressEvent{
					Phase:   PhaseDispatch,
					Subject: batch.ID,
					Status:  ProgressFailed,
					Message: err.Error(),
				})
				// Isolation: the error is recorded, not propagated, so the
				// errgroup context stays live for sibling batches.
				return nil
			}

			outcomes[i] = BatchOutcome{
				Batch:      batch,
				Dispatcher: w,
				Result:     res,
			}
			f.emit(ProgressEvent{
				Phase:   PhaseDispatch,
				Subject: batch.ID,
				Status:  ProgressComplete,
			})
			return nil
		})
	}

	g.Wait()
	return outcomes
}

// blockedResult synthesizes a result blocking every issue in the batch,
// used when the dispatch itself failed.
func blockedResult(batch schedule.Batch, workerID string, cause error) *worker.Result {
	now := time.Now().UTC()
	res := &worker.Result{
		BatchID:   batch.ID,
		WorkerID:  workerID,
		Status:    worker.StatusBlocked,
		StartedAt: now,
		EndedAt:   now,
	}
	for _, iss := range batch.Issues {
		res.Decisions = append(res.Decisions, worker.IssueDecision{
			Key: iss.Key(),
			Decision: issue.Decision{
				State:     issue.StateBlocked,
				Reasoning: fmt.Sprintf("batch dispatch failed: %v", cause),
				BatchID:   batch.ID,
			},
		})
	}
	return res
}

func (f *FanOut) emit(ev ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(ev)
	}
}
