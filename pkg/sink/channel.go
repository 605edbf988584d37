package sink

import (
	"context"
	"sync"

	"github.com/jmx-collector/pkg/model"
)

// ChannelSink 把事件写入 channel，供嵌入方与测试消费
type ChannelSink struct {
	ch        chan model.MetricEvent
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan model.MetricEvent, buffer)}
}

// Events 只读端，Close 后关闭
func (s *ChannelSink) Events() <-chan model.MetricEvent { return s.ch }

// Emit channel 满时阻塞，直到消费方读取或 ctx 取消
func (s *ChannelSink) Emit(ctx context.Context, e model.MetricEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	select {
	case s.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
	return nil
}

// Drain 读出当前缓冲中的全部事件，不阻塞
func (s *ChannelSink) Drain() []model.MetricEvent {
	var out []model.MetricEvent
	for {
		select {
		case e, ok := <-s.ch:
			if !ok {
				return out
			}
			out = append(out, e)
		default:
			return out
		}
	}
}
