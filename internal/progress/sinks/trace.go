package sinks

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JakeFAU/statusinfo/internal/progress"
	"github.com/JakeFAU/statusinfo/pkg/statusinfo"
)

const tracerName = "github.com/JakeFAU/statusinfo/internal/progress/sinks"

// TraceSink mirrors operations as OpenTelemetry spans. Child operations
// become child spans when the parent span is still open.
type TraceSink struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewTraceSink builds a sink on tp, or on the global provider when tp is nil.
func NewTraceSink(tp trace.TracerProvider) *TraceSink {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TraceSink{
		tracer: tp.Tracer(tracerName),
		spans:  make(map[string]trace.Span),
	}
}

// Consume starts, annotates and ends spans in event order.
func (s *TraceSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		switch evt.Change {
		case statusinfo.Began:
			s.begin(evt)
		case statusinfo.Changed:
			if span, ok := s.spans[evt.OperationID]; ok {
				span.AddEvent("steps",
					trace.WithTimestamp(evt.TS),
					trace.WithAttributes(
						attribute.Int("statusinfo.steps_added", evt.StepsAdded),
						attribute.Int("statusinfo.current_steps", evt.CurrentSteps),
					),
				)
			}
		case statusinfo.Ended:
			if span, ok := s.spans[evt.OperationID]; ok {
				span.SetAttributes(attribute.Int("statusinfo.current_steps", evt.CurrentSteps))
				span.End(trace.WithTimestamp(evt.TS))
				delete(s.spans, evt.OperationID)
			}
		}
	}
	return nil
}

func (s *TraceSink) begin(evt progress.Event) {
	// Spans outlive the flush context, so they hang off a fresh root.
	parent := context.Background()
	if evt.ParentID != "" {
		if span, ok := s.spans[evt.ParentID]; ok {
			parent = trace.ContextWithSpan(parent, span)
		}
	}
	_, span := s.tracer.Start(parent, evt.Name,
		trace.WithTimestamp(evt.TS),
		trace.WithAttributes(
			attribute.String("statusinfo.operation_id", evt.OperationID),
			attribute.String("statusinfo.thread", evt.ThreadName),
			attribute.Int64("statusinfo.thread_id", int64(evt.ThreadID)),
			attribute.Int("statusinfo.max_steps", evt.MaxSteps),
		),
	)
	s.spans[evt.OperationID] = span
}

// Open reports how many spans are still waiting for their ENDED event.
func (s *TraceSink) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spans)
}

// Close ends every span that is still open.
func (s *TraceSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, span := range s.spans {
		span.SetAttributes(attribute.Bool("statusinfo.unfinished", true))
		span.End()
		delete(s.spans, id)
	}
	return nil
}
