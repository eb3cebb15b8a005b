// Package dispatcher manages worker fan-out over the job queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/statusinfo/internal/worker"
	"github.com/JakeFAU/statusinfo/internal/workload"
)

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue   workload.Queue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue workload.Queue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Run starts all workers and blocks until every one of them has returned,
// either because the context finished or the queue was closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	wg.Wait()
}

// Totals sums processed and failed job counts across the pool.
func (d *Dispatcher) Totals() (processed, failed int64) {
	for _, w := range d.workers {
		processed += w.Processed()
		failed += w.Failed()
	}
	return processed, failed
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, job workload.Job) error {
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
