package sinks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/statusinfo/internal/progress"
	"github.com/JakeFAU/statusinfo/pkg/statusinfo"
)

const (
	kindRoot  = "root"
	kindChild = "child"
)

// PrometheusSink exports operation lifecycle metrics via Prometheus. It owns
// the collectors for started, ended and active operations, step throughput,
// and operation duration.
type PrometheusSink struct {
	started  *prometheus.CounterVec
	ended    *prometheus.CounterVec
	active   prometheus.Gauge
	steps    prometheus.Counter
	duration *prometheus.HistogramVec

	tracker *operationTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statusinfo_operations_started_total",
			Help: "Total operations started partitioned by root or child.",
		}, []string{"kind"}),
		ended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statusinfo_operations_ended_total",
			Help: "Total operations ended partitioned by root or child.",
		}, []string{"kind"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "statusinfo_operations_active",
			Help: "Operations currently open.",
		}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "statusinfo_steps_total",
			Help: "Positive step increments reported across all operations.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statusinfo_operation_duration_seconds",
			Help:    "Wall time from begin to end per operation.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"kind"}),
		tracker: newOperationTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.started,
		s.ended,
		s.active,
		s.steps,
		s.duration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	kind := kindRoot
	if evt.ParentID != "" {
		kind = kindChild
	}
	switch evt.Change {
	case statusinfo.Began:
		s.started.WithLabelValues(kind).Inc()
		if s.tracker.start(evt.OperationID, evt.TS) {
			s.active.Inc()
		}
	case statusinfo.Changed:
		// Counters cannot go down; rewinds only show up in the registry snapshot.
		if evt.StepsAdded > 0 {
			s.steps.Add(float64(evt.StepsAdded))
		}
	case statusinfo.Ended:
		s.ended.WithLabelValues(kind).Inc()
		began, ok := s.tracker.complete(evt.OperationID)
		if !ok {
			return
		}
		s.active.Dec()
		if d := evt.TS.Sub(began); d >= 0 {
			s.duration.WithLabelValues(kind).Observe(d.Seconds())
		}
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type operationTracker struct {
	mu      sync.Mutex
	running map[string]time.Time
}

func newOperationTracker() *operationTracker {
	return &operationTracker{running: make(map[string]time.Time)}
}

func (t *operationTracker) start(id string, ts time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = ts
	return true
}

func (t *operationTracker) complete(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	began, ok := t.running[id]
	if !ok {
		return time.Time{}, false
	}
	delete(t.running, id)
	return began, true
}
