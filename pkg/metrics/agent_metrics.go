package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// -------------------------- Agent 自身监控指标 --------------------------

// NewAgentCollectErrorsTotal 后台自监控采集器的失败次数
// collector: 采集器名称，例如 "process-collector"
func (f *MetricFactory) NewAgentCollectErrorsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "agent_collect_errors_total",
			Help:      "Total number of self-monitoring collector errors",
		},
		[]string{"collector"},
	)
}

func (f *MetricFactory) NewAgentCollectDurationSeconds() *prometheus.HistogramVec {
	return promauto.With(f.reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "agent_collect_duration_seconds",
			Help:      "Duration of self-monitoring collector execution",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"collector"},
	)
}

func (f *MetricFactory) NewProcessCPUPercent() prometheus.Gauge {
	return promauto.With(f.reg).NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "process_cpu_percent",
		Help:      "CPU usage of the collector process in percent",
	})
}

func (f *MetricFactory) NewProcessResidentBytes() prometheus.Gauge {
	return promauto.With(f.reg).NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "process_resident_memory_bytes",
		Help:      "Resident memory of the collector process",
	})
}

func (f *MetricFactory) NewProcessThreads() prometheus.Gauge {
	return promauto.With(f.reg).NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "process_threads",
		Help:      "OS threads of the collector process",
	})
}

func (f *MetricFactory) NewProcessGoroutines() prometheus.Gauge {
	return promauto.With(f.reg).NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "process_goroutines",
		Help:      "Goroutines of the collector process",
	})
}
