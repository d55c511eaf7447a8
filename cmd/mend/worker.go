package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dusk-indust/mend/internal/schedule"
	"github.com/dusk-indust/mend/internal/worker"
)

// runWorker serves the in-process worker over HTTP so other orchestrator
// instances can dispatch batches to it.
func runWorker(flags cliFlags, args []string) error {
	addr := "localhost:9201"
	if len(args) > 0 {
		addr = args[0]
	}

	hostname, _ := os.Hostname()
	name := fmt.Sprintf("mend-worker-%s", hostname)

	card := worker.Card{
		Name:     name,
		Version:  version,
		MaxBatch: schedule.DefaultBatchSize,
		Endpoint: "http://" + addr,
	}

	local := worker.NewLocal(name, flags.ProjectRoot)
	srv := worker.NewServer(card, local)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx, addr); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	fmt.Fprintf(os.Stderr, "worker %s listening on %s\n", name, addr)

	<-ctx.Done()
	return srv.Stop(context.Background())
}
