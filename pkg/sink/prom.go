package sink

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmx-collector/pkg/metrics"
	"github.com/jmx-collector/pkg/model"
)

// PromSink 数值事件写入 jmx_metric_value{host,metric_path}，字符串事件忽略
type PromSink struct {
	values *prometheus.GaugeVec
}

func NewPromSink(f *metrics.MetricFactory) *PromSink {
	return &PromSink{values: f.NewJMXValue()}
}

func (s *PromSink) Emit(_ context.Context, e model.MetricEvent) error {
	if e.ValueNumber == nil {
		return nil
	}
	s.values.WithLabelValues(e.Host, e.MetricPath).Set(*e.ValueNumber)
	return nil
}

func (s *PromSink) Close() error { return nil }
