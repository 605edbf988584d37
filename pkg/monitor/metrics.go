// Package monitor 汇总各组件持有的指标句柄，由 metrics.MetricFactory 统一创建
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jmx-collector/pkg/metrics"
)

// -------------------------- 采集引擎指标结构体 --------------------------
type CollectionMetrics struct {
	Errors         *prometheus.CounterVec // 按阶段统计的失败次数
	Events         *prometheus.CounterVec // 按值类型统计的事件数
	RecordDuration prometheus.Histogram   // 单个端点轮询耗时
	CycleOverruns  prometheus.Counter     // 超过 polling_frequency 的轮次
	CycleDuration  prometheus.Gauge       // 上一轮耗时
	CycleSources   *prometheus.GaugeVec   // 上一轮 enqueued / rejected
	QueueDepth     prometheus.Gauge       // 排队 + 处理中
}

// NewCollectionMetrics 创建并注册引擎指标
func NewCollectionMetrics(f *metrics.MetricFactory) *CollectionMetrics {
	return &CollectionMetrics{
		Errors:         f.NewErrorsTotal(),
		Events:         f.NewEventsTotal(),
		RecordDuration: f.NewRecordDurationSeconds(),
		CycleOverruns:  f.NewCycleOverrunsTotal(),
		CycleDuration:  f.NewCycleDurationSeconds(),
		CycleSources:   f.NewCycleSources(),
		QueueDepth:     f.NewQueueDepth(),
	}
}

// NewNopCollectionMetrics 注册到一次性的 registry，供库调用方与单测使用
func NewNopCollectionMetrics() *CollectionMetrics {
	return NewCollectionMetrics(metrics.NewMetricFactory(metrics.NewPromRegistry(prometheus.NewRegistry())))
}

// -------------------------- 进程采集器指标结构体 --------------------------
type ProcessCollectorMetrics struct {
	CPUPercent    prometheus.Gauge
	ResidentBytes prometheus.Gauge
	Threads       prometheus.Gauge
	Goroutines    prometheus.Gauge
}
