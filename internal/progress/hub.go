package progress

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/statusinfo/internal/clock/system"
	"github.com/JakeFAU/statusinfo/pkg/statusinfo"
)

// Config tunes the Hub. Zero values fall back to the defaults noted per field.
type Config struct {
	// BufferSize bounds the inbox between listeners and the batching loop (4096).
	BufferSize int
	// MaxBatchEvents flushes a batch once it holds this many events (1000).
	MaxBatchEvents int
	// MaxBatchWait flushes a non-empty batch after this long (500ms).
	MaxBatchWait time.Duration
	// SinkTimeout bounds each Consume call (10s).
	SinkTimeout time.Duration
	// BaseContext parents sink contexts.
	BaseContext context.Context
	// Clock stamps events taken from the registry.
	Clock Clock
	// Filter, when set, decides which operations the hub listens to.
	Filter func(statusinfo.Operation) bool
	Logger *zap.Logger
}

const dropWarnEvery = 5 * time.Second

func (c Config) withDefaults() Config {
	if c.BufferSize <= 0 {
		c.BufferSize = 4096
	}
	if c.MaxBatchEvents <= 0 {
		c.MaxBatchEvents = 1000
	}
	if c.MaxBatchWait <= 0 {
		c.MaxBatchWait = 500 * time.Millisecond
	}
	if c.SinkTimeout <= 0 {
		c.SinkTimeout = 10 * time.Second
	}
	if c.BaseContext == nil {
		c.BaseContext = context.Background()
	}
	if c.Clock == nil {
		c.Clock = system.New()
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Hub is a registry listener that turns notifications into Events and hands
// them to sinks in batches from a single goroutine. Listener callbacks only
// ever do a non-blocking channel send.
type Hub struct {
	cfg    Config
	sinks  []Sink
	inbox  chan Event
	stop   chan struct{}
	done   chan struct{}
	logger *zap.Logger

	dropWarn   *rate.Limiter
	dropped    atomic.Int64 // since the last warning
	totalDrops atomic.Int64
	delivered  atomic.Int64
	batches    atomic.Int64
	closed     atomic.Bool

	closeOnce sync.Once
	closeCtx  context.Context
}

var _ statusinfo.Listener = (*Hub)(nil)

// NewHub starts the batching loop over sinks and returns a Hub ready to be
// registered with a statusinfo.Registry.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	cfg = cfg.withDefaults()
	h := &Hub{
		cfg:      cfg,
		sinks:    append([]Sink(nil), sinks...),
		inbox:    make(chan Event, cfg.BufferSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   cfg.Logger,
		dropWarn: newDropWarner(),
	}
	go h.run()
	return h
}

func newDropWarner() *rate.Limiter {
	return rate.NewLimiter(rate.Every(dropWarnEvery), 1)
}

// InterestedIn implements statusinfo.Listener using the configured filter.
func (h *Hub) InterestedIn(op statusinfo.Operation) bool {
	if h == nil || h.closed.Load() {
		return false
	}
	if h.cfg.Filter == nil {
		return true
	}
	return h.cfg.Filter(op)
}

// OperationChanged implements statusinfo.Listener by copying the notification
// into an Event and emitting it.
func (h *Hub) OperationChanged(op statusinfo.Operation, change statusinfo.ChangeType, stepsAdded int) {
	if h == nil {
		return
	}
	h.Emit(FromOperation(op, change, stepsAdded, h.cfg.Clock.Now()))
}

// Emit queues evt for the next batch. A full inbox drops the event instead of
// waiting; drops are reported at most once per dropWarnEvery.
func (h *Hub) Emit(evt Event) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("progress event rejected", zap.Error(err))
		return
	}
	select {
	case h.inbox <- evt:
	default:
		h.totalDrops.Add(1)
		pending := h.dropped.Add(1)
		if h.dropWarn == nil || h.dropWarn.Allow() {
			h.dropped.Add(-pending)
			h.logger.Warn("progress inbox full, events dropped", zap.Int64("dropped", pending))
		}
	}
}

// Stats is a point-in-time view of hub throughput.
type Stats struct {
	// Delivered counts events handed to sinks.
	Delivered int64
	Dropped   int64
	Batches   int64
}

// Stats reports how many events were delivered or dropped so far.
func (h *Hub) Stats() Stats {
	if h == nil {
		return Stats{}
	}
	return Stats{
		Delivered: h.delivered.Load(),
		Dropped:   h.totalDrops.Load(),
		Batches:   h.batches.Load(),
	}
}

// Close stops intake, flushes what is buffered, closes the sinks and waits
// for the loop to exit or ctx to end. Repeated calls only wait.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeCtx = ctx
		close(h.stop)
	})
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("progress hub close: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.done)
	b := newBatcher(h.cfg.MaxBatchEvents, h.cfg.MaxBatchWait)
	defer b.stop()
	for {
		select {
		case evt := <-h.inbox:
			if b.add(evt) {
				h.flush(b.take())
			}
		case <-b.due():
			h.flush(b.take())
		case <-h.stop:
			h.drain(b)
			return
		}
	}
}

// drain flushes whatever is still buffered after stop, then closes sinks.
// Emit refuses new events once closed is set, so the loop terminates.
func (h *Hub) drain(b *batcher) {
	for {
		select {
		case evt := <-h.inbox:
			if b.add(evt) {
				h.flush(b.take())
			}
		default:
			h.flush(b.take())
			h.closeSinks()
			return
		}
	}
}

func (h *Hub) flush(batch []Event) {
	if len(batch) == 0 {
		return
	}
	h.batches.Add(1)
	h.delivered.Add(int64(len(batch)))
	for i, sink := range h.sinks {
		if sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(h.cfg.BaseContext, h.cfg.SinkTimeout)
		err := sink.Consume(ctx, batch)
		cancel()
		if err != nil {
			h.logger.Warn("progress sink rejected batch", zap.Int("sink", i), zap.Int("events", len(batch)), zap.Error(err))
		}
	}
}

func (h *Hub) closeSinks() {
	ctx := h.closeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	for i, sink := range h.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("progress sink did not close cleanly", zap.Int("sink", i), zap.Error(err))
		}
	}
}
