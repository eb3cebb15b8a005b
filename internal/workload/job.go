// Package workload defines the synthetic jobs that exercise the registry in
// demo and serve modes, plus the queue contract workers consume from.
package workload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Dequeue once a closed queue is drained.
var ErrQueueClosed = errors.New("queue closed")

// Job is one unit of simulated work.
type Job struct {
	ID   string
	Name string
	// Steps is the declared budget and the number of step updates reported.
	Steps int
	// Fanout is the number of helper threads that work under the job.
	Fanout    int
	StepDelay time.Duration
}

// Queue is a bounded, context-aware FIFO of jobs.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (Job, error)
	Close()
}

// Shape describes generated jobs.
type Shape struct {
	Steps     int
	Fanout    int
	StepDelay time.Duration
}

// NewJob builds the seq-th job for shape.
func NewJob(seq int, shape Shape) Job {
	return Job{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("job-%03d", seq),
		Steps:     shape.Steps,
		Fanout:    shape.Fanout,
		StepDelay: shape.StepDelay,
	}
}

// Feed enqueues count jobs, or keeps enqueuing until ctx ends when count is
// negative. It closes q when it returns.
func Feed(ctx context.Context, q Queue, count int, shape Shape) error {
	defer q.Close()
	for seq := 1; count < 0 || seq <= count; seq++ {
		if err := q.Enqueue(ctx, NewJob(seq, shape)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("feed job %d: %w", seq, err)
		}
	}
	return nil
}
