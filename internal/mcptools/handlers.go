package mcptools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/mend/internal/depgraph"
	"github.com/dusk-indust/mend/internal/export"
	"github.com/dusk-indust/mend/internal/orchestrator"
	"github.com/dusk-indust/mend/internal/schedule"
	"github.com/dusk-indust/mend/internal/worker"
)

// OrchestratorService backs the MCP tool handlers. It keeps the ledger of
// the most recent resolve_issues run so get_ledger can return it.
type OrchestratorService struct {
	mu          sync.Mutex
	lastLedger  *orchestrator.Ledger
	lastProject string
}

// NewOrchestratorService creates an empty service.
func NewOrchestratorService() *OrchestratorService {
	return &OrchestratorService{}
}

// locatorFor picks the function locator for a request. Without a project
// root there is no source to parse, so the analysis runs on file and line
// proximity alone.
func locatorFor(projectRoot string) depgraph.Locator {
	if projectRoot == "" {
		return depgraph.NoopLocator{}
	}
	return depgraph.NewTreeSitterLocator(projectRoot)
}

func analyze(ctx context.Context, issues []IssueInput, projectRoot string, window int) (*depgraph.Graph, error) {
	a := depgraph.NewAnalyzer(window, locatorFor(projectRoot))
	return a.Analyze(ctx, toIssues(issues))
}

// AssessOverlap computes the dependency edges for a set of issues without
// scheduling or resolving anything.
func (s *OrchestratorService) AssessOverlap(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssessOverlapInput,
) (*mcp.CallToolResult, AssessOverlapOutput, error) {
	if len(input.Issues) == 0 {
		return nil, AssessOverlapOutput{}, fmt.Errorf("issues is required")
	}

	g, err := analyze(ctx, input.Issues, input.ProjectRoot, input.LineWindow)
	if err != nil {
		return nil, AssessOverlapOutput{}, err
	}

	out := AssessOverlapOutput{
		IssueCount: len(g.Nodes),
		Warnings:   g.Warnings,
	}
	for _, e := range g.Edges {
		out.Edges = append(out.Edges, OverlapEdge{From: e.From, To: e.To, Weight: e.Weight})
	}
	return nil, out, nil
}

// PlanBatches produces the batch schedule for a set of issues without
// dispatching it.
func (s *OrchestratorService) PlanBatches(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PlanBatchesInput,
) (*mcp.CallToolResult, PlanBatchesOutput, error) {
	if len(input.Issues) == 0 {
		return nil, PlanBatchesOutput{}, fmt.Errorf("issues is required")
	}

	g, err := analyze(ctx, input.Issues, input.ProjectRoot, input.LineWindow)
	if err != nil {
		return nil, PlanBatchesOutput{}, err
	}

	size := input.BatchSize
	if size == 0 {
		size = schedule.DefaultBatchSize
	}
	plan, err := schedule.NewPlanner(size).Plan(g, toIssues(input.Issues))
	if err != nil {
		return nil, PlanBatchesOutput{}, err
	}

	out := PlanBatchesOutput{
		Layers:  len(plan.Layers),
		Mermaid: export.GenerateMermaid(g, plan),
	}
	for _, b := range plan.Batches {
		out.Batches = append(out.Batches, BatchPlanEntry{
			ID:     b.ID,
			Mode:   string(b.Mode),
			Layer:  b.Layer,
			WaitOn: b.WaitOn,
			Issues: b.Keys(),
		})
	}
	return nil, out, nil
}

// ResolveIssues runs the full pipeline and stores the resulting ledger.
func (s *OrchestratorService) ResolveIssues(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResolveIssuesInput,
) (*mcp.CallToolResult, ResolveIssuesOutput, error) {
	if len(input.Issues) == 0 {
		return nil, ResolveIssuesOutput{}, fmt.Errorf("issues is required")
	}
	if input.ProjectRoot == "" {
		return nil, ResolveIssuesOutput{}, fmt.Errorf("projectRoot is required")
	}

	cfg := orchestrator.Config{
		ProjectRoot:     input.ProjectRoot,
		BatchSize:       input.BatchSize,
		LineWindow:      input.LineWindow,
		BatchTimeout:    time.Duration(input.TimeoutSeconds) * time.Second,
		WorkerEndpoints: input.WorkerEndpoints,
	}

	local := worker.NewLocal("local", input.ProjectRoot)
	pool := orchestrator.NewPool(local)
	if len(input.WorkerEndpoints) > 0 {
		pool = orchestrator.DetectWorkers(ctx, input.WorkerEndpoints, local)
	}

	pipeline := orchestrator.NewPipeline(cfg, pool, locatorFor(input.ProjectRoot), nil)
	led, err := pipeline.Run(ctx, toIssues(input.Issues))
	if err != nil {
		return nil, ResolveIssuesOutput{}, err
	}

	s.mu.Lock()
	s.lastLedger = led
	s.lastProject = input.ProjectRoot
	s.mu.Unlock()

	return nil, ResolveIssuesOutput{
		Fixed:         led.Counts.Fixed,
		FalsePositive: led.Counts.FalsePositive,
		Deferred:      led.Counts.Deferred,
		Blocked:       led.Counts.Blocked,
		Total:         led.Counts.Total,
		Conflicts:     len(led.Conflicts),
		Artifacts:     led.Artifacts,
	}, nil
}

// GetLedger returns the ledger of the most recent run.
func (s *OrchestratorService) GetLedger(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GetLedgerInput,
) (*mcp.CallToolResult, GetLedgerOutput, error) {
	s.mu.Lock()
	led := s.lastLedger
	project := s.lastProject
	s.mu.Unlock()

	if led == nil {
		return nil, GetLedgerOutput{}, fmt.Errorf("no run has completed yet")
	}

	out := GetLedgerOutput{
		Project:   project,
		Conflicts: len(led.Conflicts),
		Artifacts: led.Artifacts,
	}
	for _, bucket := range [][]orchestrator.LedgerEntry{led.Fixed, led.FalsePositive, led.Deferred, led.Blocked} {
		for _, e := range bucket {
			out.Entries = append(out.Entries, LedgerEntryOutput{
				Key:       e.Key,
				State:     string(e.Decision.State),
				Reasoning: e.Decision.Reasoning,
				BatchID:   e.Decision.BatchID,
				Artifact:  e.Decision.ArtifactRef,
			})
		}
	}
	return nil, out, nil
}
