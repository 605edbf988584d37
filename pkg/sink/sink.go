// Package sink 接收 worker 产生的 MetricEvent，输出到日志、Prometheus 或文件
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/jmx-collector/pkg/config"
	"github.com/jmx-collector/pkg/metrics"
	"github.com/jmx-collector/pkg/model"
)

// Sink 事件输出，多个 worker 会并发调用 Emit
type Sink interface {
	Emit(ctx context.Context, event model.MetricEvent) error
	Close() error
}

// Deps 构造 sink 需要的外部依赖
type Deps struct {
	Fs      afero.Fs
	Logger  *zap.Logger
	Factory *metrics.MetricFactory
}

// New 按 outputs 顺序创建 sink，多个时返回 Multi
func New(cfg config.SinkConfig, deps Deps) (Sink, error) {
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	var sinks []Sink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}
	for _, out := range cfg.Outputs {
		var (
			s   Sink
			err error
		)
		switch out {
		case "log":
			s = NewLogSink(deps.Logger)
		case "prometheus":
			if deps.Factory == nil {
				err = errors.New("prometheus sink requires a metric factory")
				break
			}
			s = NewPromSink(deps.Factory)
		case "jsonl":
			s, err = NewJSONLSink(deps.Fs, cfg.JSONL.Path)
		case "parquet":
			s, err = NewParquetSink(deps.Fs, cfg.Parquet.Path)
		default:
			err = fmt.Errorf("unknown sink %q", out)
		}
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("sink %s: %w", out, err)
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMulti(sinks...), nil
}

// Multi 依次写入所有 sink，单个失败不影响其它 sink
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Emit(ctx context.Context, event model.MetricEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
