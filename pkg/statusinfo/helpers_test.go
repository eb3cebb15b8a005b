package statusinfo

import (
	"context"
	"sync"
)

const operationName = "Testing operations."

type recordedEvent struct {
	op     Operation
	change ChangeType
	delta  int
}

// recorder captures every notification it is interested in.
type recorder struct {
	mu       sync.Mutex
	interest func(Operation) bool
	events   []recordedEvent
}

func newRecorder() *recorder {
	return &recorder{}
}

func (r *recorder) InterestedIn(op Operation) bool {
	if r.interest == nil {
		return true
	}
	return r.interest(op)
}

func (r *recorder) OperationChanged(op Operation, change ChangeType, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{op: op, change: change, delta: delta})
}

func (r *recorder) Events() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

func (r *recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Names lists operation names for one change type in delivery order.
func (r *recorder) Names(change ChangeType) []string {
	var out []string
	for _, evt := range r.Events() {
		if evt.change == change {
			out = append(out, evt.op.Name)
		}
	}
	return out
}

func threadCtx(name string) (context.Context, Thread) {
	th := NewThread(name)
	return WithThread(context.Background(), th), th
}
