// Package worker runs demo jobs as nested registry operations.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/statusinfo/internal/workload"
	"github.com/JakeFAU/statusinfo/pkg/statusinfo"
)

// Worker consumes queue items on its own thread and reports progress to the
// registry.
type Worker struct {
	queue    workload.Queue
	registry *statusinfo.Registry
	thread   statusinfo.Thread
	logger   *zap.Logger

	pacer Pacer

	processed atomic.Int64
	failed    atomic.Int64
}

// Pacer throttles how often a worker may take a job, keyed by worker name.
type Pacer interface {
	Wait(ctx context.Context, key string) error
}

// Option customizes a Worker.
type Option func(*Worker)

// WithPacer makes the worker wait on p before each dequeue.
func WithPacer(p Pacer) Option {
	return func(w *Worker) {
		w.pacer = p
	}
}

// New constructs a Worker bound to a fresh thread called name.
func New(queue workload.Queue, registry *statusinfo.Registry, name string, logger *zap.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	th := statusinfo.NewThread(name)
	w := &Worker{
		queue:    queue,
		registry: registry,
		thread:   th,
		logger:   logger.With(zap.Stringer("thread", th)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Thread reports the execution context this worker attributes work to.
func (w *Worker) Thread() statusinfo.Thread {
	return w.thread
}

// Processed counts jobs that completed without error.
func (w *Worker) Processed() int64 {
	return w.processed.Load()
}

// Failed counts jobs cut short by cancellation or registry errors.
func (w *Worker) Failed() int64 {
	return w.failed.Load()
}

// Run blocks, consuming queue items until the context finishes or the queue
// is closed and drained.
func (w *Worker) Run(ctx context.Context) {
	ctx = statusinfo.WithThread(ctx, w.thread)
	for {
		if w.pacer != nil {
			if err := w.pacer.Wait(ctx, w.thread.Name); err != nil {
				return
			}
		}
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, workload.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", job.ID), zap.String("name", job.Name))
		if err := w.Process(ctx, job); err != nil {
			w.failed.Add(1)
			w.logger.Warn("job failed", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		w.processed.Add(1)
	}
}

// Process runs one job as an operation on the worker's thread. The job
// operation nests a short "prepare" operation, reports Steps updates, then
// fans out to helper threads that work under it and end their own parts.
func (w *Worker) Process(ctx context.Context, job workload.Job) error {
	ctx = statusinfo.WithThread(ctx, w.thread)
	_, err := statusinfo.Perform(ctx, w.registry, job.Name, job.Steps,
		func(ctx context.Context, h statusinfo.Handle) (struct{}, error) {
			if err := statusinfo.Do(ctx, w.registry, "prepare", func(ctx context.Context) error {
				return pause(ctx, job.StepDelay)
			}); err != nil {
				return struct{}{}, err
			}
			for i := 0; i < job.Steps; i++ {
				if err := pause(ctx, job.StepDelay); err != nil {
					return struct{}{}, err
				}
				if err := w.registry.UpdateCurrentOperation(ctx, 1); err != nil {
					return struct{}{}, fmt.Errorf("step %d: %w", i+1, err)
				}
			}
			return struct{}{}, w.fanout(ctx, job, h)
		})
	return err
}

// fanout runs job.Fanout helpers concurrently. The parent stays open until
// every helper has ended its sub-operation.
func (w *Worker) fanout(ctx context.Context, job workload.Job, parent statusinfo.Handle) error {
	if job.Fanout <= 0 {
		return nil
	}
	var wg sync.WaitGroup
	errs := make([]error, job.Fanout)
	for i := 0; i < job.Fanout; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			helper := statusinfo.WithNewThread(ctx, fmt.Sprintf("%s/helper-%d", w.thread.Name, i+1))
			sub, err := w.registry.StartSubOperation(helper, parent.Receipt, fmt.Sprintf("%s part %d", job.Name, i+1), 1)
			if err != nil {
				errs[i] = fmt.Errorf("start part %d: %w", i+1, err)
				return
			}
			defer w.registry.EndOperation(sub.Receipt)
			if err := pause(helper, job.StepDelay); err != nil {
				errs[i] = err
				return
			}
			errs[i] = w.registry.UpdateOperation(sub.Receipt, 1)
		}(i)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("pause interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
