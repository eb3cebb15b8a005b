package statusinfo

import (
	"context"
	"reflect"
	"runtime"
	"slices"

	"go.uber.org/zap"
)

// ChangeType describes what happened to an operation.
type ChangeType int

// Supported change types.
const (
	Began ChangeType = iota + 1
	Changed
	Ended
)

// String returns the upper-case change name.
func (c ChangeType) String() string {
	switch c {
	case Began:
		return "BEGAN"
	case Changed:
		return "CHANGED"
	case Ended:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Listener observes operation lifecycle changes. Implementations should be
// comparable (pointer receivers are the usual choice) so RemoveListener can
// find them, and must be safe for concurrent calls.
type Listener interface {
	// InterestedIn filters which operations the listener hears about.
	InterestedIn(op Operation) bool
	// OperationChanged is called outside every registry lock. stepsAdded is
	// zero for Began and Ended.
	OperationChanged(op Operation, change ChangeType, stepsAdded int)
}

// ListenerFunc is the callback shape used by FuncListener.
type ListenerFunc func(op Operation, change ChangeType, stepsAdded int)

// FuncListener adapts plain functions to the Listener interface. A nil
// interest function accepts every operation.
type FuncListener struct {
	interest func(Operation) bool
	fn       ListenerFunc
}

// NewListener builds a FuncListener.
func NewListener(interest func(Operation) bool, fn ListenerFunc) *FuncListener {
	return &FuncListener{interest: interest, fn: fn}
}

// OnAnyThread listens to every operation.
func OnAnyThread(fn ListenerFunc) *FuncListener {
	return NewListener(nil, fn)
}

// OnThread only listens to operations owned by th.
func OnThread(th Thread, fn ListenerFunc) *FuncListener {
	return NewListener(func(op Operation) bool { return op.Thread == th }, fn)
}

// OnCurrentThread only listens to operations owned by the thread in ctx.
func OnCurrentThread(ctx context.Context, fn ListenerFunc) *FuncListener {
	return OnThread(CurrentThread(ctx), fn)
}

// InterestedIn implements Listener.
func (l *FuncListener) InterestedIn(op Operation) bool {
	if l.interest == nil {
		return true
	}
	return l.interest(op)
}

// OperationChanged implements Listener.
func (l *FuncListener) OperationChanged(op Operation, change ChangeType, stepsAdded int) {
	if l.fn != nil {
		l.fn(op, change, stepsAdded)
	}
}

type registration struct {
	listener Listener
	// dedicated is empty for global registrations.
	dedicated Receipt
}

// AddListener registers l until RemoveListener is called.
func (r *Registry) AddListener(l Listener) {
	if l == nil {
		return
	}
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.listeners = append(r.listeners, registration{listener: l})
}

// AddListenerUntilEndOfCurrentOperation registers l until the current
// operation of the calling thread ends, including when it ends as part of a
// cascade. It returns ErrNoOperationInProgress when the thread has nothing
// open.
func (r *Registry) AddListenerUntilEndOfCurrentOperation(ctx context.Context, l Listener) error {
	if l == nil {
		return nil
	}
	th := CurrentThread(ctx)
	r.statusesMu.Lock()
	defer r.statusesMu.Unlock()
	leaf := r.leafLocked(th)
	if leaf == nil {
		return noOperationInThread(th)
	}
	r.listenersMu.Lock()
	r.listeners = append(r.listeners, registration{listener: l, dedicated: leaf.Receipt})
	r.listenersMu.Unlock()
	return nil
}

// RemoveListener drops the first registration of l, global or dedicated.
// A listener whose dynamic type is not comparable never matches.
func (r *Registry) RemoveListener(l Listener) {
	if l == nil || !reflect.TypeOf(l).Comparable() {
		return
	}
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	for i, reg := range r.listeners {
		if reg.listener == l {
			r.listeners = slices.Delete(r.listeners, i, i+1)
			return
		}
	}
}

func (r *Registry) pruneDedicated(ended map[Receipt]struct{}) {
	if len(ended) == 0 {
		return
	}
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	kept := r.listeners[:0]
	for _, reg := range r.listeners {
		if reg.dedicated != "" {
			if _, ok := ended[reg.dedicated]; ok {
				continue
			}
		}
		kept = append(kept, reg)
	}
	for i := len(kept); i < len(r.listeners); i++ {
		r.listeners[i] = registration{}
	}
	r.listeners = kept
}

// notify delivers ops in order to every interested registration. The
// registration list is copied first so callbacks run without any lock.
func (r *Registry) notify(ops []Operation, change ChangeType, stepsAdded int) {
	if len(ops) == 0 {
		return
	}
	r.listenersMu.Lock()
	regs := append([]registration(nil), r.listeners...)
	r.listenersMu.Unlock()
	for _, op := range ops {
		for _, reg := range regs {
			r.deliver(reg.listener, op, change, stepsAdded)
		}
	}
}

func (r *Registry) deliver(l Listener, op Operation, change ChangeType, stepsAdded int) {
	defer func() {
		if v := recover(); v != nil {
			buf := make([]byte, 8192)
			n := runtime.Stack(buf, false)
			r.logger.Error("status listener panicked",
				zap.Any("panic", v),
				zap.String("operation_id", op.ID),
				zap.Stringer("change", change),
				zap.ByteString("stack", buf[:n]),
			)
		}
	}()
	if l.InterestedIn(op) {
		l.OperationChanged(op, change, stepsAdded)
	}
}
