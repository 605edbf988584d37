package collector

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/jmx-collector/pkg/logger"
	"github.com/jmx-collector/pkg/metrics"
	"github.com/jmx-collector/pkg/monitor"
)

// ProcessCollector 采集 jmx-collector 进程自身的资源占用（实现 registers.Collector 接口）
type ProcessCollector struct {
	name            string
	pid             int32
	proc            *process.Process
	metrics         monitor.ProcessCollectorMetrics
	collectErrors   *prometheus.CounterVec
	collectDuration *prometheus.HistogramVec
}

// NewProcessCollector 创建进程采集器，pid <= 0 时采集当前进程
func NewProcessCollector(pid int32, f *metrics.MetricFactory) *ProcessCollector {
	if pid <= 0 {
		pid = int32(os.Getpid())
	}
	return &ProcessCollector{
		name: "process-collector",
		pid:  pid,
		metrics: monitor.ProcessCollectorMetrics{
			CPUPercent:    f.NewProcessCPUPercent(),
			ResidentBytes: f.NewProcessResidentBytes(),
			Threads:       f.NewProcessThreads(),
			Goroutines:    f.NewProcessGoroutines(),
		},
		collectErrors:   f.NewAgentCollectErrorsTotal(),
		collectDuration: f.NewAgentCollectDurationSeconds(),
	}
}

func (c *ProcessCollector) Name() string { return c.name }

// Init 预检查进程是否可访问
func (c *ProcessCollector) Init() error {
	p, err := process.NewProcess(c.pid)
	if err != nil {
		return fmt.Errorf("open process %d: %w", c.pid, err)
	}
	c.proc = p
	return nil
}

// Collect 更新进程指标，单项失败只计数
func (c *ProcessCollector) Collect(ctx context.Context) error {
	if c.proc == nil {
		return fmt.Errorf("%s: not initialized", c.name)
	}
	start := time.Now()
	defer func() {
		c.collectDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	}()

	var failed int
	if pct, err := c.proc.CPUPercentWithContext(ctx); err != nil {
		failed++
		logger.Debug("read process cpu failed", zap.String("name", c.name), zap.Error(err))
	} else {
		c.metrics.CPUPercent.Set(pct)
	}
	if mem, err := c.proc.MemoryInfoWithContext(ctx); err != nil {
		failed++
		logger.Debug("read process memory failed", zap.String("name", c.name), zap.Error(err))
	} else {
		c.metrics.ResidentBytes.Set(float64(mem.RSS))
	}
	if n, err := c.proc.NumThreadsWithContext(ctx); err != nil {
		failed++
		logger.Debug("read process threads failed", zap.String("name", c.name), zap.Error(err))
	} else {
		c.metrics.Threads.Set(float64(n))
	}
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if failed > 0 {
		c.collectErrors.WithLabelValues(c.name).Add(float64(failed))
		return fmt.Errorf("%s: %d of 3 reads failed", c.name, failed)
	}
	return nil
}

func (c *ProcessCollector) Close() error {
	c.proc = nil
	return nil
}
