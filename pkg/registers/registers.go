package registers

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jmx-collector/pkg/collector"
	"github.com/jmx-collector/pkg/logger"
	"github.com/jmx-collector/pkg/metrics"
)

// Module 一个可开关的自监控采集器
type Module struct {
	Enabled bool
	Name    string
	NewFunc func() Collector
}

// Options InitPromRegistry 参数
type Options struct {
	// EnableProcess 同时注册官方 process collector
	EnableProcess bool
	// Interval 自监控采集间隔
	Interval time.Duration
}

// InitPromRegistry 创建 registry、指标工厂与自监控 Agent 并启动
// 返回的 factory 供采集引擎与 PromSink 注册指标，registry 由 HTTP /metrics 暴露
func InitPromRegistry(ctx context.Context, opts Options) (*prometheus.Registry, *metrics.MetricFactory, Agent, error) {
	promReg := prometheus.NewRegistry()
	// 不注册 Go runtime 指标，goroutine 数由 process-collector 提供
	if opts.EnableProcess {
		promReg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}

	factory := metrics.NewMetricFactory(metrics.NewPromRegistry(promReg))

	agent := NewAgent(opts.Interval)
	registered, err := RegisterCollectors(agent, factory)
	if err != nil {
		logger.Error("failed to register collectors", zap.Error(err))
		return nil, nil, nil, err
	}
	if err := agent.Start(ctx); err != nil {
		return nil, nil, nil, err
	}
	logger.Debug("self monitor collectors registered",
		zap.Int("count", len(registered)),
		zap.Duration("interval", opts.Interval))

	return promReg, factory, agent, nil
}

// RegisterCollectors 采集器注册统一入口，新增采集器只需在 modules 中加一项
func RegisterCollectors(agent Agent, factory *metrics.MetricFactory) ([]Collector, error) {
	modules := []Module{
		{
			Enabled: true,
			Name:    "process",
			NewFunc: func() Collector {
				return collector.NewProcessCollector(0, factory)
			},
		},
	}

	var registered []Collector
	for _, m := range modules {
		if !m.Enabled {
			logger.Debug("collector disabled", zap.String("name", m.Name))
			continue
		}
		c := m.NewFunc()
		agent.Register(c)
		registered = append(registered, c)
		logger.Debug("registered collector", zap.String("name", m.Name))
	}
	if len(registered) == 0 {
		return nil, fmt.Errorf("no collectors enabled")
	}
	return registered, nil
}
