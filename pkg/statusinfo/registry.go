package statusinfo

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/statusinfo/internal/id/uuid"
)

// IDGenerator creates operation IDs and receipts. Both must be globally
// unique; receipts should be unguessable because they grant control.
type IDGenerator interface {
	NewID() (string, error)
	NewReceipt() (string, error)
}

// Option customizes a Registry.
type Option func(*Registry)

// WithLogger sets the structured logger. A nil logger is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithIDGenerator replaces the default UUID generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(r *Registry) {
		if gen != nil {
			r.ids = gen
		}
	}
}

// Registry owns the forest of active operations and the listener directory.
// It is safe for concurrent use by multiple goroutines.
type Registry struct {
	// statusesMu guards statuses, seq and every record's links and counters.
	// When both locks are needed it is always taken before listenersMu.
	statusesMu sync.Mutex
	statuses   map[Receipt]*record
	seq        uint64

	listenersMu sync.Mutex
	listeners   []registration

	ids    IDGenerator
	logger *zap.Logger
}

// New returns an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		statuses: make(map[Receipt]*record),
		ids:      uuid.NewUUIDGenerator(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartOperation starts name on the thread carried by ctx, nested under that
// thread's current operation if one is open.
func (r *Registry) StartOperation(ctx context.Context, name string, maxSteps int) Handle {
	return r.StartOperationIn(CurrentThread(ctx), name, maxSteps)
}

// StartOperationIn starts name on th, nested under th's current operation.
// It lets one goroutine register work attributed to another thread.
func (r *Registry) StartOperationIn(th Thread, name string, maxSteps int) Handle {
	r.statusesMu.Lock()
	rec := r.startLocked(th, r.leafLocked(th), name, maxSteps)
	op := rec.view()
	r.statusesMu.Unlock()

	r.notify([]Operation{op}, Began, 0)
	return Handle{ID: rec.ID, Receipt: rec.Receipt}
}

// StartSubOperation starts name on the thread carried by ctx as a child of
// the operation identified by parent, which may belong to another thread.
func (r *Registry) StartSubOperation(ctx context.Context, parent Receipt, name string, maxSteps int) (Handle, error) {
	th := CurrentThread(ctx)
	r.statusesMu.Lock()
	p, ok := r.statuses[parent]
	if !ok {
		r.statusesMu.Unlock()
		return Handle{}, noOperationWithReceipt(parent)
	}
	rec := r.startLocked(th, p, name, maxSteps)
	op := rec.view()
	r.statusesMu.Unlock()

	r.notify([]Operation{op}, Began, 0)
	return Handle{ID: rec.ID, Receipt: rec.Receipt}, nil
}

// UpdateCurrentOperation adds steps to the current operation of the thread
// carried by ctx. Negative amounts are allowed and the result is not clamped.
func (r *Registry) UpdateCurrentOperation(ctx context.Context, steps int) error {
	th := CurrentThread(ctx)
	r.statusesMu.Lock()
	rec := r.leafLocked(th)
	if rec == nil {
		r.statusesMu.Unlock()
		return noOperationInThread(th)
	}
	rec.CurrentSteps += steps
	op := rec.view()
	r.statusesMu.Unlock()

	r.notify([]Operation{op}, Changed, steps)
	return nil
}

// UpdateOperation adds steps to the operation identified by receipt.
func (r *Registry) UpdateOperation(receipt Receipt, steps int) error {
	r.statusesMu.Lock()
	rec, ok := r.statuses[receipt]
	if !ok {
		r.statusesMu.Unlock()
		return noOperationWithReceipt(receipt)
	}
	rec.CurrentSteps += steps
	op := rec.view()
	r.statusesMu.Unlock()

	r.notify([]Operation{op}, Changed, steps)
	return nil
}

// EndOperation ends the operation identified by receipt together with the
// unbranched chain of open descendants on its thread. Operations that still
// have other live children are preserved. It may be called from any
// goroutine. It reports whether anything ended; unknown receipts return
// false without notifying anyone.
func (r *Registry) EndOperation(receipt Receipt) bool {
	r.statusesMu.Lock()
	target, ok := r.statuses[receipt]
	if !ok {
		r.statusesMu.Unlock()
		r.logger.Debug("end of unknown operation ignored", zap.String("receipt", string(receipt)))
		return false
	}
	ended := r.endLocked(target)
	r.statusesMu.Unlock()

	if len(ended) == 0 {
		r.logger.Debug("operation kept open; it is a branch point",
			zap.String("operation_id", target.ID),
			zap.String("name", target.Name),
		)
		return false
	}

	ops := make([]Operation, 0, len(ended))
	receipts := make(map[Receipt]struct{}, len(ended))
	for _, rec := range ended {
		ops = append(ops, rec.op)
		receipts[rec.receipt] = struct{}{}
	}
	r.notify(ops, Ended, 0)
	r.pruneDedicated(receipts)
	r.logger.Debug("operation ended",
		zap.String("operation_id", target.ID),
		zap.String("name", target.Name),
		zap.Int("cascade", len(ended)),
	)
	return true
}

type endedRecord struct {
	receipt Receipt
	op      Operation
}

func (r *Registry) startLocked(th Thread, parent *record, name string, maxSteps int) *record {
	r.seq++
	rec := &record{
		ID:       r.newID(),
		Receipt:  Receipt(r.newReceipt()),
		Name:     name,
		Thread:   th,
		MaxSteps: maxSteps,
		seq:      r.seq,
		parent:   parent,
		children: make(map[Receipt]struct{}),
	}
	if parent != nil {
		parent.children[rec.Receipt] = struct{}{}
	}
	r.statuses[rec.Receipt] = rec
	r.logger.Debug("operation started",
		zap.String("operation_id", rec.ID),
		zap.String("name", name),
		zap.Stringer("thread", th),
	)
	return rec
}

// endLocked walks from the active leaf under target up to target, inclusive.
// A visited node with at most one live child left is terminated; a busier
// branch point is skipped and the walk goes on to its parent. The result is
// ordered leaf first.
func (r *Registry) endLocked(target *record) []endedRecord {
	var ended []endedRecord
	for n := r.leafUnderLocked(target); n != nil; n = n.parent {
		if len(n.children) <= 1 {
			ended = append(ended, endedRecord{receipt: n.Receipt, op: n.view()})
			r.removeLocked(n)
		}
		if n == target {
			break
		}
	}
	return ended
}

// removeLocked drops n from the map and its parent. A child that outlives n
// becomes a root.
func (r *Registry) removeLocked(n *record) {
	delete(r.statuses, n.Receipt)
	if n.parent != nil {
		delete(n.parent.children, n.Receipt)
	}
	for receipt := range n.children {
		if child, ok := r.statuses[receipt]; ok {
			child.parent = nil
		}
	}
	n.children = nil
}

// leafLocked returns the most recently started childless operation of th.
func (r *Registry) leafLocked(th Thread) *record {
	var leaf *record
	for _, rec := range r.statuses {
		if rec.Thread != th || len(rec.children) > 0 {
			continue
		}
		if leaf == nil || rec.seq > leaf.seq {
			leaf = rec
		}
	}
	return leaf
}

// leafUnderLocked returns the most recently started childless operation on
// target's thread that descends from target, or target itself.
func (r *Registry) leafUnderLocked(target *record) *record {
	var leaf *record
	for _, rec := range r.statuses {
		if rec.Thread != target.Thread || len(rec.children) > 0 || !rec.descendsFrom(target) {
			continue
		}
		if leaf == nil || rec.seq > leaf.seq {
			leaf = rec
		}
	}
	if leaf == nil {
		return target
	}
	return leaf
}

func (r *Registry) newID() string {
	id, err := r.ids.NewID()
	if err != nil {
		r.logger.Warn("operation id generation failed; using sequence", zap.Error(err))
		return fmt.Sprintf("op-%d", r.seq)
	}
	return id
}

func (r *Registry) newReceipt() string {
	receipt, err := r.ids.NewReceipt()
	if err != nil {
		r.logger.Warn("receipt generation failed; using sequence", zap.Error(err))
		return fmt.Sprintf("receipt-%d", r.seq)
	}
	return receipt
}

func noOperationInThread(th Thread) error {
	return fmt.Errorf("thread %s: %w", th, ErrNoOperationInProgress)
}

func noOperationWithReceipt(receipt Receipt) error {
	return fmt.Errorf("receipt %q: %w", receipt, ErrNoOperationInProgress)
}
