package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// -------------------------- 采集引擎指标 --------------------------

// NewErrorsTotal 各阶段失败次数
// stage: source / connect / query / alias / read / emit / close / panic
func (f *MetricFactory) NewErrorsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total collection failures by stage",
		},
		[]string{"stage"},
	)
}

// NewEventsTotal 发出的事件数，kind: number / bool / string
func (f *MetricFactory) NewEventsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_total",
			Help:      "Total metric events emitted by value kind",
		},
		[]string{"kind"},
	)
}

// NewRecordDurationSeconds 单个端点一次完整轮询的耗时
func (f *MetricFactory) NewRecordDurationSeconds() prometheus.Histogram {
	return promauto.With(f.reg).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "record_duration_seconds",
			Help:      "Duration of one endpoint poll",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 0.01s ~ 20s
		},
	)
}

func (f *MetricFactory) NewCycleOverrunsTotal() prometheus.Counter {
	return promauto.With(f.reg).NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cycle_overruns_total",
			Help:      "Cycles whose work exceeded the polling frequency",
		},
	)
}

func (f *MetricFactory) NewCycleDurationSeconds() prometheus.Gauge {
	return promauto.With(f.reg).NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Elapsed time of the last cycle from discovery to drain",
		},
	)
}

// NewCycleSources 上一轮的配置文件数，result: enqueued / rejected
func (f *MetricFactory) NewCycleSources() *prometheus.GaugeVec {
	return promauto.With(f.reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "cycle_sources",
			Help:      "Config sources handled in the last cycle",
		},
		[]string{"result"},
	)
}

func (f *MetricFactory) NewQueueDepth() prometheus.Gauge {
	return promauto.With(f.reg).NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "queue_depth",
			Help:      "Records queued or in flight",
		},
	)
}

// NewJMXValue PromSink 使用，把数值事件暴露为 gauge
func (f *MetricFactory) NewJMXValue() *prometheus.GaugeVec {
	return promauto.With(f.reg).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jmx_metric_value",
			Help: "Last numeric value collected for a JMX metric path",
		},
		[]string{"host", "metric_path"},
	)
}
