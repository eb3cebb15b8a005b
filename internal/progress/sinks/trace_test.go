package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/JakeFAU/statusinfo/internal/progress"
	"github.com/JakeFAU/statusinfo/pkg/statusinfo"
)

func newRecordedTraceSink(t *testing.T) (*TraceSink, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() {
		require.NoError(t, tp.Shutdown(context.Background()))
	})
	return NewTraceSink(tp), sr
}

// TestTraceSinkBuildsSpanTree maps operations onto parent/child spans with step events.
func TestTraceSinkBuildsSpanTree(t *testing.T) {
	t.Parallel()

	sink, sr := newRecordedTraceSink(t)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		event("root", "", statusinfo.Began, 0, start),
		event("child", "root", statusinfo.Began, 0, start.Add(time.Second)),
		event("child", "root", statusinfo.Changed, 3, start.Add(2*time.Second)),
		event("child", "root", statusinfo.Ended, 0, start.Add(3*time.Second)),
	}))
	require.Equal(t, 1, sink.Open())
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		event("root", "", statusinfo.Ended, 0, start.Add(4*time.Second)),
	}))
	require.Zero(t, sink.Open())

	ended := sr.Ended()
	require.Len(t, ended, 2)
	child, root := ended[0], ended[1]
	require.Equal(t, "child", child.Name())
	require.Equal(t, "root", root.Name())
	require.Equal(t, root.SpanContext().SpanID(), child.Parent().SpanID())
	require.Equal(t, root.SpanContext().TraceID(), child.SpanContext().TraceID())
	require.False(t, root.Parent().IsValid())

	require.Equal(t, start.Add(time.Second), child.StartTime())
	require.Equal(t, start.Add(3*time.Second), child.EndTime())
	require.Len(t, child.Events(), 1)
	require.Equal(t, "steps", child.Events()[0].Name)
}

// TestTraceSinkCloseEndsOpenSpans flags spans cut short by shutdown.
func TestTraceSinkCloseEndsOpenSpans(t *testing.T) {
	t.Parallel()

	sink, sr := newRecordedTraceSink(t)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		event("dangling", "", statusinfo.Began, 0, time.Now()),
	}))
	require.Empty(t, sr.Ended())

	require.NoError(t, sink.Close(context.Background()))
	ended := sr.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "dangling", ended[0].Name())
	require.Zero(t, sink.Open())
}

// TestTraceSinkIgnoresUnknownOperations skips updates for spans it never started.
func TestTraceSinkIgnoresUnknownOperations(t *testing.T) {
	t.Parallel()

	sink, sr := newRecordedTraceSink(t)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		event("ghost", "", statusinfo.Changed, 1, time.Now()),
		event("ghost", "", statusinfo.Ended, 0, time.Now()),
	}))
	require.Empty(t, sr.Ended())
	require.Empty(t, sr.Started())
}
