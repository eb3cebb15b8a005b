// Package memory provides the in-process job queue used by the demo workload.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/statusinfo/internal/workload"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch        chan workload.Job
	done      chan struct{}
	closeOnce sync.Once
}

var _ workload.Queue = (*Queue)(nil)

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch:   make(chan workload.Job, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue pushes a job into the queue or returns if the context ends.
// Enqueue after Close, or while blocked when Close happens, reports
// workload.ErrQueueClosed.
func (q *Queue) Enqueue(ctx context.Context, job workload.Job) error {
	select {
	case <-q.done:
		return workload.ErrQueueClosed
	default:
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case <-q.done:
		return workload.ErrQueueClosed
	case q.ch <- job:
		return nil
	}
}

// Dequeue pops the next job, respecting context cancellation. Once closed
// it keeps returning buffered jobs before reporting workload.ErrQueueClosed.
func (q *Queue) Dequeue(ctx context.Context) (workload.Job, error) {
	select {
	case <-ctx.Done():
		return workload.Job{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case job := <-q.ch:
		return job, nil
	case <-q.done:
		select {
		case job := <-q.ch:
			return job, nil
		default:
			return workload.Job{}, workload.ErrQueueClosed
		}
	}
}

// Len reports the number of buffered jobs.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops intake and wakes blocked producers and consumers. It never
// waits on them and is safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
