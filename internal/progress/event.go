// Package progress defines the event structures copied from registry notifications.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/statusinfo/pkg/statusinfo"
)

// Event captures a single registry notification.
type Event struct {
	// OperationID identifies the operation that changed.
	OperationID string
	// ParentID is empty for root operations.
	ParentID string
	// Name is the human-readable operation name.
	Name string
	// ThreadID and ThreadName identify the owning thread.
	ThreadID   uint64
	ThreadName string
	// Change denotes which lifecycle milestone occurred.
	Change statusinfo.ChangeType
	// StepsAdded is the delta for Changed events and zero otherwise.
	StepsAdded int
	// CurrentSteps and MaxSteps are the counters after the change.
	CurrentSteps int
	MaxSteps     int
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
}

// FromOperation copies a notification into an Event stamped with ts.
func FromOperation(op statusinfo.Operation, change statusinfo.ChangeType, stepsAdded int, ts time.Time) Event {
	return Event{
		OperationID:  op.ID,
		ParentID:     op.ParentID,
		Name:         op.Name,
		ThreadID:     op.Thread.ID,
		ThreadName:   op.Thread.Name,
		Change:       change,
		StepsAdded:   stepsAdded,
		CurrentSteps: op.CurrentSteps,
		MaxSteps:     op.MaxSteps,
		TS:           ts,
	}
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.OperationID == "" {
		return errors.New("operation id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.ThreadID == 0 {
		return errors.New("thread id is required")
	}
	switch e.Change {
	case statusinfo.Began, statusinfo.Ended:
		if e.StepsAdded != 0 {
			return fmt.Errorf("%s carries steps %d", e.Change, e.StepsAdded)
		}
	case statusinfo.Changed:
	default:
		return fmt.Errorf("unknown change %d", int(e.Change))
	}
	return nil
}

// Bounded reports whether the operation declared a step budget.
func (e Event) Bounded() bool {
	return e.MaxSteps != statusinfo.NoMaxSteps
}

// Thread rebuilds the owning thread.
func (e Event) Thread() statusinfo.Thread {
	return statusinfo.Thread{ID: e.ThreadID, Name: e.ThreadName}
}
