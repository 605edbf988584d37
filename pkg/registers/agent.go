package registers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jmx-collector/pkg/logger"
)

// AgentImpl 实现 Agent 接口：按固定间隔调用所有自监控采集器
type AgentImpl struct {
	collectors []Collector
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	mu         sync.Mutex
}

// NewAgent 创建采集器管理器
func NewAgent(interval time.Duration) *AgentImpl {
	ctx, cancel := context.WithCancel(context.Background())
	return &AgentImpl{
		collectors: make([]Collector, 0),
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Register 注册采集器
func (r *AgentImpl) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors = append(r.collectors, c)
}

// Collectors 已注册采集器的副本
func (r *AgentImpl) Collectors() []Collector {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Collector, len(r.collectors))
	copy(out, r.collectors)
	return out
}

// InitAll 初始化所有采集器，任何一个失败即返回
func (r *AgentImpl) InitAll() error {
	for _, c := range r.Collectors() {
		if err := c.Init(); err != nil {
			return fmt.Errorf("collector %s init failed: %w", c.Name(), err)
		}
		logger.Debug("collector initialized", zap.String("name", c.Name()))
	}
	return nil
}

// Start 初始化后启动定时采集，ctx 取消或 Shutdown 时退出
func (r *AgentImpl) Start(ctx context.Context) error {
	if err := r.InitAll(); err != nil {
		return err
	}
	r.mu.Lock()
	if r.done != nil {
		r.mu.Unlock()
		return errors.New("agent already started")
	}
	r.done = make(chan struct{})
	r.mu.Unlock()

	logger.Debug("self monitor started",
		zap.Duration("interval", r.interval),
		zap.Int("collectors", len(r.Collectors())))

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		if err := r.CollectAll(ctx); err != nil {
			logger.Warn("first self monitor collection failed", zap.Error(err))
		}
		for {
			select {
			case <-ticker.C:
				_ = r.CollectAll(ctx)
			case <-ctx.Done():
				logger.Info("self monitor stopped by context", zap.Error(ctx.Err()))
				return
			case <-r.ctx.Done():
				logger.Info("self monitor stopped by shutdown")
				return
			}
		}
	}()
	return nil
}

// Shutdown 停止采集循环并关闭所有采集器
func (r *AgentImpl) Shutdown(ctx context.Context) error {
	r.cancel()
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.CloseAll()
}

// CollectAll 调用全部采集器，单个失败不影响其它采集器
func (r *AgentImpl) CollectAll(ctx context.Context) error {
	var errs []error
	for _, c := range r.Collectors() {
		if err := c.Collect(ctx); err != nil {
			logger.Warn("self monitor collection failed", zap.String("name", c.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CloseAll 关闭全部采集器，返回合并后的错误
func (r *AgentImpl) CloseAll() error {
	var errs []error
	for _, c := range r.Collectors() {
		if err := c.Close(); err != nil {
			logger.Error("failed to close collector", zap.String("name", c.Name()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
