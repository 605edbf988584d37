package metrics

// Namespace 所有指标的前缀
const Namespace = "jmx_collector"

// MetricFactory 指标工厂，统一创建 counter/gauge/histogram 并注册到同一个 Registers
type MetricFactory struct {
	reg Registers
}

// NewMetricFactory 创建指标工厂
func NewMetricFactory(reg Registers) *MetricFactory {
	return &MetricFactory{reg: reg}
}
