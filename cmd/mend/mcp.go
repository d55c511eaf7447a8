package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/mend/internal/mcptools"
)

// runServeMCP exposes the orchestrator tools over MCP for agent clients.
func runServeMCP(flags cliFlags) error {
	svc := mcptools.NewOrchestratorService()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "mend MCP server listening on %s\n", flags.MCPAddr)
	return mcptools.RunMCPServer(ctx, svc, flags.MCPAddr)
}
