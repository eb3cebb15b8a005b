package statusinfo

import (
	"fmt"
	"strings"
)

// String renders name(id=…,thread=…,steps=cur/max).
func (o Operation) String() string {
	return fmt.Sprintf("%s(id=%s,thread=%s,steps=%d/%d)", o.Name, o.ID, o.Thread, o.CurrentSteps, o.MaxSteps)
}

// String appends the dedicated listener count to the operation.
func (s OperationSnapshot) String() string {
	return fmt.Sprintf("%s(dedicatedListeners=%d)", s.Operation, s.DedicatedListeners)
}

// String renders the thread followed by its operations.
func (s ThreadSnapshot) String() string {
	parts := make([]string, 0, len(s.Operations))
	for _, op := range s.Operations {
		parts = append(parts, op.String())
	}
	return s.Thread.String() + "[" + strings.Join(parts, ", ") + "]"
}

// String renders the whole snapshot on one line.
func (s Snapshot) String() string {
	parts := make([]string, 0, len(s.Threads))
	for _, ts := range s.Threads {
		parts = append(parts, ts.String())
	}
	return fmt.Sprintf("Operation state(listeners=%d,threadStates=[%s])", s.Listeners, strings.Join(parts, ", "))
}

// String renders Operation(id=…,receipt=…).
func (h Handle) String() string {
	return fmt.Sprintf("Operation(id=%s,receipt=%s)", h.ID, h.Receipt)
}
