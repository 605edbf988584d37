// Package scheduler 驱动采集轮次：DISCOVER -> DRAIN_WAIT -> PACE -> DISCOVER ...
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/jmx-collector/pkg/jmx"
	"github.com/jmx-collector/pkg/logger"
	"github.com/jmx-collector/pkg/monitor"
	"github.com/jmx-collector/pkg/queue"
	"github.com/jmx-collector/pkg/sink"
	"github.com/jmx-collector/pkg/source"
	"github.com/jmx-collector/pkg/worker"
)

// State 调度器所处阶段
type State string

const (
	StateIdle      State = "idle"
	StateDiscover  State = "discover"
	StateDrainWait State = "drain_wait"
	StatePace      State = "pace"
	StateStopped   State = "stopped"
)

// 状态迁移事件
const (
	eventDiscover = "discover"
	eventDrain    = "drain"
	eventPace     = "pace"
	eventStop     = "stop"
)

// StageSource 配置文件失败计入 jmx_collector_errors_total{stage="source"}
const StageSource = "source"

// CycleReport 一轮采集的结果
type CycleReport struct {
	ID       string        `json:"id"`
	Started  time.Time     `json:"started"`
	Sources  int           `json:"sources"`
	Enqueued int           `json:"enqueued"`
	Rejected int           `json:"rejected"`
	Elapsed  time.Duration `json:"elapsed"`
	Sleep    time.Duration `json:"sleep"`
	Overrun  bool          `json:"overrun"`
}

// Options 调度器依赖与参数
type Options struct {
	Loader *source.Loader
	Dialer jmx.Dialer
	Sink   sink.Sink

	NbThread         int
	QueueSize        int
	PollingFrequency time.Duration
	DrainCheck       time.Duration
	// Timeout worker 单次网络操作超时
	Timeout time.Duration
	// Type 事件 type 字段
	Type string

	Clock   clock.Clock
	Metrics *monitor.CollectionMetrics
	Logger  *zap.Logger
}

// Scheduler 持有工作队列和 worker 池；池只创建一次，跨轮次复用
type Scheduler struct {
	opts  Options
	queue *queue.Queue
	pool  *worker.Pool
	log   *zap.Logger

	machine   *fsm.FSM
	last      atomic.Pointer[CycleReport]
	startOnce sync.Once
	stopOnce  sync.Once
}

// New 校验参数并创建调度器，参数错误属于启动期致命错误
func New(opts Options) (*Scheduler, error) {
	switch {
	case opts.Loader == nil:
		return nil, errors.New("scheduler: loader is required")
	case opts.Dialer == nil:
		return nil, errors.New("scheduler: dialer is required")
	case opts.Sink == nil:
		return nil, errors.New("scheduler: sink is required")
	case opts.NbThread < 1:
		return nil, errors.New("scheduler: nb_thread must be >= 1")
	case opts.PollingFrequency <= 0:
		return nil, errors.New("scheduler: polling frequency must be positive")
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1024
	}
	if opts.DrainCheck <= 0 {
		opts.DrainCheck = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitor.NewNopCollectionMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = logger.Named("scheduler")
	}

	q := queue.New(opts.QueueSize)
	pool := worker.NewPool(opts.NbThread, q, worker.Options{
		Dialer:     opts.Dialer,
		Sink:       opts.Sink,
		Metrics:    opts.Metrics,
		Logger:     opts.Logger.Named("worker"),
		Timeout:    opts.Timeout,
		SourcePath: opts.Loader.Dir(),
		Type:       opts.Type,
	})
	s := &Scheduler{opts: opts, queue: q, pool: pool, log: opts.Logger}
	s.machine = newMachine(s.log)
	return s, nil
}

func newMachine(log *zap.Logger) *fsm.FSM {
	all := []string{string(StateIdle), string(StateDiscover), string(StateDrainWait), string(StatePace)}
	return fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: eventDiscover, Src: []string{string(StateIdle), string(StateDrainWait), string(StatePace)}, Dst: string(StateDiscover)},
			{Name: eventDrain, Src: []string{string(StateDiscover)}, Dst: string(StateDrainWait)},
			{Name: eventPace, Src: []string{string(StateDrainWait)}, Dst: string(StatePace)},
			{Name: eventStop, Src: all, Dst: string(StateStopped)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debug("scheduler state changed", zap.String("from", e.Src), zap.String("to", e.Dst))
			},
		},
	)
}

// transition 状态迁移只做记录；停止后的迁移与原地迁移被忽略
func (s *Scheduler) transition(event string) {
	err := s.machine.Event(context.Background(), event)
	var noop fsm.NoTransitionError
	if err != nil && !errors.As(err, &noop) {
		s.log.Debug("scheduler transition ignored", zap.String("event", event), zap.String("state", s.machine.Current()), zap.Error(err))
	}
}

// State 当前阶段
func (s *Scheduler) State() State { return State(s.machine.Current()) }

// LastReport 最近一轮完成的报告
func (s *Scheduler) LastReport() (CycleReport, bool) {
	r := s.last.Load()
	if r == nil {
		return CycleReport{}, false
	}
	return *r, true
}

// Start 启动 worker 池
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.pool.Start(ctx)
	})
}

// Run 启动 worker 池并循环执行轮次，直到 ctx 取消
func (s *Scheduler) Run(ctx context.Context) error {
	s.Start(ctx)
	s.log.Info("scheduler started",
		zap.String("path", s.opts.Loader.Dir()),
		zap.Duration("polling_frequency", s.opts.PollingFrequency),
		zap.Int("nb_thread", s.opts.NbThread))
	for {
		report, err := s.RunCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := s.pace(ctx, report); err != nil {
			return nil
		}
	}
}

// RunCycle 执行 DISCOVER 和 DRAIN_WAIT，并计算 PACE 需要休眠的时长（不休眠）
func (s *Scheduler) RunCycle(ctx context.Context) (CycleReport, error) {
	start := s.opts.Clock.Now()
	report := CycleReport{ID: uuid.NewString(), Started: start}
	log := s.log.With(zap.String("cycle", report.ID))

	s.transition(eventDiscover)
	if err := s.discover(ctx, log, &report); err != nil {
		return report, err
	}

	s.transition(eventDrain)
	if err := s.drain(ctx); err != nil {
		return report, err
	}

	s.transition(eventPace)
	report.Elapsed = s.opts.Clock.Since(start)
	if remaining := s.opts.PollingFrequency - report.Elapsed; remaining > 0 {
		report.Sleep = remaining
	} else {
		report.Overrun = true
		s.opts.Metrics.CycleOverruns.Inc()
		log.Warn("polling frequency too short for current workload, starting next cycle immediately",
			zap.Duration("polling_frequency", s.opts.PollingFrequency),
			zap.Duration("elapsed", report.Elapsed))
	}

	s.opts.Metrics.CycleDuration.Set(report.Elapsed.Seconds())
	s.opts.Metrics.CycleSources.WithLabelValues("enqueued").Set(float64(report.Enqueued))
	s.opts.Metrics.CycleSources.WithLabelValues("rejected").Set(float64(report.Rejected))
	s.last.Store(&report)
	log.Info("cycle finished",
		zap.Int("sources", report.Sources),
		zap.Int("enqueued", report.Enqueued),
		zap.Int("rejected", report.Rejected),
		zap.Duration("elapsed", report.Elapsed),
		zap.Duration("sleep", report.Sleep))
	return report, nil
}

// discover 逐个读取配置文件并入队，单个文件失败只记录日志
func (s *Scheduler) discover(ctx context.Context, log *zap.Logger, report *CycleReport) error {
	paths, err := s.opts.Loader.Discover()
	if err != nil {
		s.opts.Metrics.Errors.WithLabelValues(StageSource).Inc()
		log.Error("discover config sources failed", zap.Error(err))
		return nil
	}
	report.Sources = len(paths)
	for _, p := range paths {
		rec, err := s.opts.Loader.Load(p)
		if err != nil {
			report.Rejected++
			s.opts.Metrics.Errors.WithLabelValues(StageSource).Inc()
			log.Warn("config source rejected", zap.String("source", p), zap.Error(err))
			continue
		}
		if err := s.queue.Push(ctx, rec); err != nil {
			return err
		}
		report.Enqueued++
		s.opts.Metrics.QueueDepth.Set(float64(s.queue.Len()))
	}
	return nil
}

// drain 按 DrainCheck 间隔轮询队列，直到排队和处理中的记录都为 0
func (s *Scheduler) drain(ctx context.Context) error {
	if s.queue.Len() == 0 {
		return nil
	}
	ticker := s.opts.Clock.Ticker(s.opts.DrainCheck)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.queue.Len() == 0 {
				return nil
			}
		}
	}
}

func (s *Scheduler) pace(ctx context.Context, report CycleReport) error {
	if report.Sleep <= 0 {
		return nil
	}
	timer := s.opts.Clock.Timer(report.Sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Stop 停止 worker 并关闭队列
func (s *Scheduler) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		err = s.pool.Stop()
		s.queue.Close()
		s.transition(eventStop)
		s.log.Info("scheduler stopped")
	})
	return err
}
