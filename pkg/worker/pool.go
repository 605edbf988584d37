package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jmx-collector/pkg/queue"
)

// Pool 固定大小的 worker 池，启动后不扩缩容，跨轮次复用
type Pool struct {
	size  int
	queue *queue.Queue
	opts  Options

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewPool 创建 worker 池，size < 1 时按 1 处理
func NewPool(size int, q *queue.Queue, opts Options) *Pool {
	if size < 1 {
		size = 1
	}
	opts.defaults()
	return &Pool{size: size, queue: q, opts: opts}
}

// Size worker 数量
func (p *Pool) Size() int { return p.size }

// Start 启动全部 worker；重复调用无效
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.group != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.group, ctx = errgroup.WithContext(ctx)
	for i := 0; i < p.size; i++ {
		w := New(i, p.opts)
		p.group.Go(func() error {
			return w.Run(ctx, p.queue)
		})
	}
	p.opts.Logger.Info("worker pool started", zap.Int("nb_thread", p.size))
}

// Stop 取消所有 worker 并等待退出
func (p *Pool) Stop() error {
	p.mu.Lock()
	group, cancel := p.group, p.cancel
	p.mu.Unlock()
	if group == nil {
		return nil
	}
	cancel()
	err := group.Wait()
	p.opts.Logger.Info("worker pool stopped", zap.Error(err))
	return err
}
