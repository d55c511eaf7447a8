package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewOrchestratorMCPServer creates an MCP server with the resolution tools
// registered.
func NewOrchestratorMCPServer(svc *OrchestratorService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "mend-orchestrator",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "assess_overlap",
		Description: "Compute the dependency edges between a set of reported issues from file, line, and enclosing-function overlap signals. Returns the weighted edge list without scheduling anything.",
	}, svc.AssessOverlap)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "plan_batches",
		Description: "Build the topologically layered batch schedule for a set of issues: bounded batches, parallel first layer, sequential later layers with wait-lists. Returns the plan and a Mermaid diagram.",
	}, svc.PlanBatches)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_issues",
		Description: "Run the full resolution pipeline over a set of issues: analyze overlap, plan batches, dispatch them to workers with risk-based gating, reconcile conflicting fixes, and return the final counts.",
	}, svc.ResolveIssues)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_ledger",
		Description: "Return the full per-issue ledger of the most recent resolve_issues run, including reasoning, batch assignment, and artifact references.",
	}, svc.GetLedger)

	return server
}

// RunMCPServer starts an HTTP server exposing the orchestrator MCP tools.
func RunMCPServer(ctx context.Context, svc *OrchestratorService, addr string) error {
	server := NewOrchestratorMCPServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
