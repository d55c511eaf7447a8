package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dusk-indust/mend/internal/worker"
)

// probeTimeout bounds each worker-card fetch during detection.
const probeTimeout = 500 * time.Millisecond

// Pool hands out workers round-robin so batches spread across the fleet.
type Pool struct {
	mu      sync.Mutex
	workers []worker.Dispatcher
	next    int
}

// NewPool creates a pool over the given workers.
func NewPool(workers ...worker.Dispatcher) *Pool {
	return &Pool{workers: workers}
}

// Next returns the next worker in round-robin order, or nil for an empty
// pool.
func (p *Pool) Next() worker.Dispatcher {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.workers) == 0 {
		return nil
	}
	w := p.workers[p.next%len(p.workers)]
	p.next++
	return w
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// DetectWorkers probes the configured endpoints in parallel and builds a
// pool from the ones that serve a valid worker card. When nothing responds
// the pool falls back to the in-process worker so a run always has
// capacity.
func DetectWorkers(ctx context.Context, endpoints []string, fallback worker.Dispatcher) *Pool {
	var (
		mu   sync.Mutex
		live []worker.Dispatcher
		wg   sync.WaitGroup
	)

	for _, endpoint := range endpoints {
		wg.Add(1)
		go func(ep string) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			card, err := worker.DiscoverWorker(probeCtx, nil, ep)
			if err != nil {
				log.Printf("detector: no worker at %s: %v", ep, err)
				return
			}

			mu.Lock()
			live = append(live, worker.NewRemote(card.Name, ep))
			mu.Unlock()
		}(endpoint)
	}
	wg.Wait()

	if len(live) == 0 {
		log.Printf("detector: no remote workers, using %s", fallback.ID())
		return NewPool(fallback)
	}

	log.Printf("detector: %d remote worker(s) discovered", len(live))
	return NewPool(live...)
}
