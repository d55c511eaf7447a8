package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dusk-indust/mend/internal/depgraph"
	"github.com/dusk-indust/mend/internal/issue"
	"github.com/dusk-indust/mend/internal/schedule"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Pipeline is the default Orchestrator: ingest, overlap analysis, batch
// planning, layered dispatch with reconciliation, final ledger.
type Pipeline struct {
	cfg      Config
	store    *issue.Store
	analyzer *depgraph.Analyzer
	planner  *schedule.Planner
	pool     *Pool
	graph    depgraph.Store
	progress *ProgressReporter
}

// NewPipeline creates a Pipeline. locator may be nil to skip function
// resolution; graphStore may be nil to skip graph persistence.
func NewPipeline(cfg Config, pool *Pool, locator depgraph.Locator, graphStore depgraph.Store) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		cfg:      cfg,
		store:    issue.NewStore(),
		analyzer: depgraph.NewAnalyzer(cfg.LineWindow, locator),
		planner:  schedule.NewPlanner(cfg.BatchSize),
		pool:     pool,
		graph:    graphStore,
		progress: NewProgressReporter(),
	}
}

// Progress returns the progress event channel.
func (p *Pipeline) Progress() <-chan ProgressEvent {
	return p.progress.Subscribe()
}

// Store exposes the issue store, for inspection after a run.
func (p *Pipeline) Store() *issue.Store {
	return p.store
}

// Run executes the full pipeline. Ingest, analysis, and planning errors
// abort the run; batch-level failures never do, they surface as blocked
// issues in the ledger instead.
func (p *Pipeline) Run(ctx context.Context, issues []issue.Issue) (*Ledger, error) {
	p.progress.Emit(ProgressEvent{Phase: PhaseIngest, Subject: "issues", Status: ProgressWorking})
	if err := p.store.Ingest(issues); err != nil {
		p.progress.Emit(ProgressEvent{Phase: PhaseIngest, Subject: "issues", Status: ProgressFailed, Message: err.Error()})
		return nil, fmt.Errorf("orchestrator: ingest: %w", err)
	}
	accepted := p.store.All()
	log.Printf("pipeline: ingested %d issue(s), %d after dedup", len(issues), len(accepted))
	p.progress.Emit(ProgressEvent{Phase: PhaseIngest, Subject: "issues", Status: ProgressComplete})

	p.progress.Emit(ProgressEvent{Phase: PhaseAnalyze, Subject: "overlap", Status: ProgressWorking})
	graph, err := p.analyzer.Analyze(ctx, accepted)
	if err != nil {
		p.progress.Emit(ProgressEvent{Phase: PhaseAnalyze, Subject: "overlap", Status: ProgressFailed, Message: err.Error()})
		return nil, fmt.Errorf("orchestrator: analyze: %w", err)
	}
	for _, w := range graph.Warnings {
		log.Printf("pipeline: analyze: %s", w)
	}
	if p.graph != nil {
		if err := depgraph.Persist(ctx, p.graph, graph); err != nil {
			// Persistence is an observability aid, not a precondition.
			log.Printf("pipeline: graph persist failed: %v", err)
		}
	}
	log.Printf("pipeline: graph has %d node(s), %d edge(s)", len(graph.Nodes), len(graph.Edges))
	p.progress.Emit(ProgressEvent{Phase: PhaseAnalyze, Subject: "overlap", Status: ProgressComplete})

	p.progress.Emit(ProgressEvent{Phase: PhasePlan, Subject: "batches", Status: ProgressWorking})
	plan, err := p.planner.Plan(graph, accepted)
	if err != nil {
		p.progress.Emit(ProgressEvent{Phase: PhasePlan, Subject: "batches", Status: ProgressFailed, Message: err.Error()})
		return nil, fmt.Errorf("orchestrator: plan: %w", err)
	}
	log.Printf("pipeline: planned %d batch(es) across %d layer(s)", len(plan.Batches), len(plan.Layers))
	p.progress.Emit(ProgressEvent{Phase: PhasePlan, Subject: "batches", Status: ProgressComplete})

	fanout := NewFanOut(p.pool, p.cfg.BatchTimeout, p.progress.Emit)
	coordinator := NewCoordinator(p.progress.Emit)

	var conflicts []ConflictReport
	for layer := range plan.Layers {
		batches := plan.Layer(layer)
		log.Printf("pipeline: layer %d: dispatching %d batch(es)", layer, len(batches))

		// The layer barrier enforces wait-lists: no sequential batch starts
		// before every batch in the preceding layer has returned.
		outcomes := fanout.RunLayer(ctx, batches)
		p.applyOutcomes(outcomes)

		reports := coordinator.Reconcile(ctx, outcomes, p.store)
		conflicts = append(conflicts, reports...)
	}

	if err := p.store.Finalize(); err != nil {
		return nil, fmt.Errorf("orchestrator: finalize: %w", err)
	}

	p.progress.Emit(ProgressEvent{Phase: PhaseAggregate, Subject: "ledger", Status: ProgressWorking})
	ledger, err := Aggregate(p.store, conflicts)
	if err != nil {
		p.progress.Emit(ProgressEvent{Phase: PhaseAggregate, Subject: "ledger", Status: ProgressFailed, Message: err.Error()})
		return nil, err
	}
	log.Printf("pipeline: done: %d fixed, %d deferred, %d false positive, %d blocked",
		ledger.Counts.Fixed, ledger.Counts.Deferred, ledger.Counts.FalsePositive, ledger.Counts.Blocked)
	p.progress.Emit(ProgressEvent{Phase: PhaseAggregate, Subject: "ledger", Status: ProgressComplete})

	return ledger, nil
}

// applyOutcomes records the workers' decisions. Any issue a worker failed
// to decide is blocked so the store can still finalize.
func (p *Pipeline) applyOutcomes(outcomes []BatchOutcome) {
	for _, out := range outcomes {
		decided := make(map[string]bool, len(out.Result.Decisions))
		for _, d := range out.Result.Decisions {
			decided[d.Key] = true
			if err := p.store.SetDecision(d.Key, d.Decision); err != nil {
				if errors.Is(err, issue.ErrDuplicateDecision) {
					log.Printf("pipeline: batch %s: %s already decided, keeping first decision", out.Batch.ID, d.Key)
					continue
				}
				log.Printf("pipeline: batch %s: record %s: %v", out.Batch.ID, d.Key, err)
			}
		}

		for _, iss := range out.Batch.Issues {
			key := iss.Key()
			if decided[key] {
				continue
			}
			err := p.store.SetDecision(key, issue.Decision{
				State:     issue.StateBlocked,
				Reasoning: fmt.Sprintf("worker %s returned no decision for this issue", out.Result.WorkerID),
				BatchID:   out.Batch.ID,
			})
			if err != nil && !errors.Is(err, issue.ErrDuplicateDecision) {
				log.Printf("pipeline: batch %s: block undecided %s: %v", out.Batch.ID, key, err)
			}
		}
	}
}
