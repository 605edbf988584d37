// Package worker 从工作队列取出 ConfigRecord，连接端点、展开 MBean、读取属性并发出事件
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/jmx-collector/pkg/alias"
	"github.com/jmx-collector/pkg/jmx"
	"github.com/jmx-collector/pkg/logger"
	"github.com/jmx-collector/pkg/model"
	"github.com/jmx-collector/pkg/monitor"
	"github.com/jmx-collector/pkg/queue"
	"github.com/jmx-collector/pkg/sink"
)

// 失败阶段，对应 jmx_collector_errors_total{stage}
const (
	StageConnect    = "connect"
	StageQuery      = "query"
	StageAlias      = "alias"
	StageAttributes = "attributes"
	StageRead       = "read"
	StageEmit       = "emit"
	StageClose      = "close"
	StagePanic      = "panic"
)

// DefaultTimeout 单次网络操作超时
const DefaultTimeout = 10 * time.Second

// Options worker 依赖，Pool 内所有 worker 共享
type Options struct {
	Dialer  jmx.Dialer
	Sink    sink.Sink
	Metrics *monitor.CollectionMetrics
	Logger  *zap.Logger
	Clock   clock.Clock
	// Timeout 每次 Dial/Query/Read 的超时
	Timeout time.Duration
	// SourcePath 事件 path 字段（配置目录）
	SourcePath string
	// Type 事件 type 字段
	Type string
}

func (o *Options) defaults() {
	if o.Metrics == nil {
		o.Metrics = monitor.NewNopCollectionMetrics()
	}
	if o.Logger == nil {
		o.Logger = logger.Named("worker")
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Type == "" {
		o.Type = "jmx"
	}
}

// Worker 单个采集协程，处理过程中的错误都在本地消化，不会导致 Run 退出
type Worker struct {
	id   int
	opts Options
	log  *zap.Logger
}

// New 创建 worker，Dialer 与 Sink 必填
func New(id int, opts Options) *Worker {
	opts.defaults()
	return &Worker{
		id:   id,
		opts: opts,
		log:  opts.Logger.With(zap.Int("worker", id)),
	}
}

// Result 一次 record 轮询的结果统计
type Result struct {
	Connected bool
	Objects   int
	Events    int
	Failures  map[string]int
}

func (r *Result) fail(stage string) {
	if r.Failures == nil {
		r.Failures = map[string]int{}
	}
	r.Failures[stage]++
}

// Run 循环消费队列，直到 ctx 取消或队列关闭
func (w *Worker) Run(ctx context.Context, q *queue.Queue) error {
	w.log.Debug("worker started")
	for {
		rec, err := q.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				w.log.Debug("worker stopped", zap.Error(err))
				return nil
			}
			return err
		}
		w.handle(ctx, rec)
		q.Done()
		w.opts.Metrics.QueueDepth.Set(float64(q.Len()))
	}
}

// handle 单条 record 的边界，panic 在这里被吃掉
func (w *Worker) handle(ctx context.Context, rec model.ConfigRecord) {
	defer func() {
		if r := recover(); r != nil {
			w.opts.Metrics.Errors.WithLabelValues(StagePanic).Inc()
			w.log.Error("panic while polling record",
				zap.String("source", rec.Source),
				zap.String("address", rec.Address()),
				zap.Any("panic", r))
		}
	}()
	w.Poll(ctx, rec)
}

// Poll 完整轮询一个端点：连接 -> 逐个 query -> 逐个对象 -> 逐个属性 -> 关闭
func (w *Worker) Poll(ctx context.Context, rec model.ConfigRecord) (res Result) {
	start := w.opts.Clock.Now()
	log := w.log.With(zap.String("source", rec.Source), zap.String("address", rec.Address()))
	defer func() {
		w.opts.Metrics.RecordDuration.Observe(w.opts.Clock.Since(start).Seconds())
		for stage, n := range res.Failures {
			w.opts.Metrics.Errors.WithLabelValues(stage).Add(float64(n))
		}
		log.Debug("record polled",
			zap.Bool("connected", res.Connected),
			zap.Int("objects", res.Objects),
			zap.Int("events", res.Events),
			zap.Any("failures", res.Failures),
			zap.Duration("elapsed", w.opts.Clock.Since(start)))
	}()

	ep := jmx.Endpoint{Host: rec.Host, Port: rec.Port}
	if rec.Credentials != nil {
		ep.Username, ep.Password = rec.Credentials.Username, rec.Credentials.Password
	}

	dialCtx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
	session, err := w.opts.Dialer.Dial(dialCtx, ep)
	cancel()
	if err != nil {
		res.fail(StageConnect)
		log.Warn("connect failed, record skipped", zap.Error(err))
		return res
	}
	res.Connected = true
	defer func() {
		if err := session.Close(); err != nil {
			res.fail(StageClose)
			log.Warn("close session failed", zap.Error(err))
		}
	}()

	origin := model.EventOrigin{Host: rec.Host, Path: w.opts.SourcePath, Type: w.opts.Type}
	base := rec.BasePath()
	for i, q := range rec.Queries {
		if ctx.Err() != nil {
			return res
		}
		w.query(ctx, session, origin, base, q, log.With(zap.Int("query", i), zap.String("object_name", q.ObjectPattern)), &res)
	}
	return res
}

func (w *Worker) query(ctx context.Context, s jmx.Session, origin model.EventOrigin, base string, q model.QuerySpec, log *zap.Logger, res *Result) {
	qctx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
	names, err := s.Query(qctx, jmx.ObjectName(q.ObjectPattern))
	cancel()
	if err != nil {
		res.fail(StageQuery)
		log.Warn("query failed", zap.Error(err))
		return
	}
	if len(names) == 0 {
		log.Warn("no mbean matched")
		return
	}

	for _, name := range names {
		objectPath := name.String()
		if q.ObjectAlias != "" {
			resolved, err := alias.Resolve(q.ObjectAlias, name.String())
			if err != nil {
				res.fail(StageAlias)
				log.Warn("resolve object alias failed, object skipped",
					zap.String("mbean", name.String()),
					zap.String("object_alias", q.ObjectAlias),
					zap.Error(err))
				continue
			}
			objectPath = resolved
		}
		res.Objects++
		w.object(ctx, s, origin, base, objectPath, name, q, log, res)
	}
}

func (w *Worker) object(ctx context.Context, s jmx.Session, origin model.EventOrigin, base, objectPath string, name jmx.ObjectName, q model.QuerySpec, log *zap.Logger, res *Result) {
	attrs := q.Attributes
	if !q.HasAttributes() {
		actx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
		discovered, err := s.Attributes(actx, name)
		cancel()
		if err != nil {
			res.fail(StageAttributes)
			log.Warn("list attributes failed", zap.String("mbean", name.String()), zap.Error(err))
			return
		}
		attrs = discovered
	}

	for _, attr := range attrs {
		w.attribute(ctx, s, origin, base, objectPath, name, attr, log, res)
	}
}

// attribute 读取并发出单个属性；panic 只影响当前属性
func (w *Worker) attribute(ctx context.Context, s jmx.Session, origin model.EventOrigin, base, objectPath string, name jmx.ObjectName, attr string, log *zap.Logger, res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res.fail(StagePanic)
			log.Error("panic while reading attribute",
				zap.String("mbean", name.String()),
				zap.String("attribute", attr),
				zap.Any("panic", r))
		}
	}()

	rctx, cancel := context.WithTimeout(ctx, w.opts.Timeout)
	v, err := s.Read(rctx, name, attr)
	cancel()
	if err != nil {
		res.fail(StageRead)
		log.Warn("read attribute failed",
			zap.String("mbean", name.String()),
			zap.String("attribute", attr),
			zap.Error(err))
		return
	}
	w.emit(ctx, origin, []string{base, objectPath, attr}, v, log, res)
}

// emit 按 Kind 分类；复合值逐层展开，每层追加一个路径片段
func (w *Worker) emit(ctx context.Context, origin model.EventOrigin, parts []string, v jmx.Value, log *zap.Logger, res *Result) {
	if v.IsComposite() {
		for _, k := range v.Keys() {
			field, _ := v.Field(k)
			w.emit(ctx, origin, append(parts[:len(parts):len(parts)], k), field, log, res)
		}
		return
	}

	now := w.opts.Clock.Now()
	path := model.MetricPath(parts...)
	var (
		event model.MetricEvent
		kind  string
	)
	switch v.Kind() {
	case jmx.KindNumber:
		event, kind = model.NewNumberEvent(origin, path, v.Float(), now), "number"
	case jmx.KindBoolean:
		n := 0.0
		if v.Bool() {
			n = 1
		}
		event, kind = model.NewNumberEvent(origin, path+model.BoolSuffix, n, now), "bool"
	default:
		event, kind = model.NewStringEvent(origin, path, v.String(), now), "string"
	}

	if err := w.opts.Sink.Emit(ctx, event); err != nil {
		res.fail(StageEmit)
		log.Warn("emit event failed", zap.String("metric_path", event.MetricPath), zap.Error(err))
		return
	}
	res.Events++
	w.opts.Metrics.Events.WithLabelValues(kind).Inc()
}
