package sinks

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/statusinfo/internal/progress"
	"github.com/JakeFAU/statusinfo/pkg/statusinfo"
)

// LogSink emits structured logs for debugging progress streams.
type LogSink struct {
	logger *zap.Logger
	level  zapcore.Level
}

// NewLogSink wires a Zap logger to the sink interface. Step updates are
// logged at Debug; begin and end at Info.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger, level: zapcore.InfoLevel}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		level := s.level
		if evt.Change == statusinfo.Changed {
			level = zapcore.DebugLevel
		}
		ce := s.logger.Check(level, "operation "+evt.Change.String())
		if ce == nil {
			continue
		}
		fields := []zap.Field{
			zap.String("operation_id", evt.OperationID),
			zap.String("name", evt.Name),
			zap.Uint64("thread_id", evt.ThreadID),
			zap.String("thread", evt.ThreadName),
			zap.Int("steps", evt.CurrentSteps),
			zap.Time("event_ts", evt.TS),
		}
		if evt.ParentID != "" {
			fields = append(fields, zap.String("parent_id", evt.ParentID))
		}
		if evt.Bounded() {
			fields = append(fields, zap.Int("max_steps", evt.MaxSteps))
		}
		if evt.Change == statusinfo.Changed {
			fields = append(fields, zap.Int("steps_added", evt.StepsAdded))
		}
		ce.Write(fields...)
	}
	return nil
}

// Close implements the Sink interface; it flushes the logger.
func (s *LogSink) Close(context.Context) error {
	// Sync errors on stderr/stdout are platform noise.
	_ = s.logger.Sync()
	return nil
}
