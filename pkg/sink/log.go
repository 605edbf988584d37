package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmx-collector/pkg/model"
)

// LogSink 每个事件一条结构化日志
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(_ context.Context, e model.MetricEvent) error {
	fields := []zap.Field{
		zap.Time("@timestamp", e.Timestamp),
		zap.String("host", e.Host),
		zap.String("path", e.Path),
		zap.String("type", e.Type),
		zap.String("metric_path", e.MetricPath),
	}
	if e.ValueNumber != nil {
		fields = append(fields, zap.Float64("metric_value_number", *e.ValueNumber))
	} else if e.ValueString != nil {
		fields = append(fields, zap.String("metric_value_string", *e.ValueString))
	}
	s.log.Info("metric", fields...)
	return nil
}

func (s *LogSink) Close() error { return nil }
