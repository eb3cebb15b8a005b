package statusinfo

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Thread identifies the execution context an operation belongs to. Go has no
// goroutine identity, so callers create threads explicitly and carry them in
// a context.Context.
type Thread struct {
	ID   uint64
	Name string
}

// MainThread is used for contexts that carry no thread.
var MainThread = Thread{ID: 1, Name: "main"}

var threadSeq atomic.Uint64

func init() {
	threadSeq.Store(MainThread.ID)
}

// NewThread returns a thread with a process-unique ID.
func NewThread(name string) Thread {
	return Thread{ID: threadSeq.Add(1), Name: name}
}

// String renders the thread as name#id.
func (t Thread) String() string {
	return fmt.Sprintf("%s#%d", t.Name, t.ID)
}

type threadKey struct{}

// WithThread returns a copy of ctx that carries th.
func WithThread(ctx context.Context, th Thread) context.Context {
	return context.WithValue(ctx, threadKey{}, th)
}

// WithNewThread attaches a freshly created thread to ctx.
func WithNewThread(ctx context.Context, name string) context.Context {
	return WithThread(ctx, NewThread(name))
}

// ThreadFrom reports the thread attached to ctx, if any.
func ThreadFrom(ctx context.Context) (Thread, bool) {
	if ctx == nil {
		return Thread{}, false
	}
	th, ok := ctx.Value(threadKey{}).(Thread)
	return th, ok
}

// CurrentThread returns the thread attached to ctx or MainThread.
func CurrentThread(ctx context.Context) Thread {
	if th, ok := ThreadFrom(ctx); ok {
		return th
	}
	return MainThread
}
