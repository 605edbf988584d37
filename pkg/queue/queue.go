// Package queue 调度器与 worker 之间唯一共享的有界工作队列
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jmx-collector/pkg/model"
)

// ErrClosed 队列已关闭
var ErrClosed = errors.New("queue: closed")

// Queue 有界 FIFO；Len 统计排队中 + 处理中的记录，worker 处理完必须调用 Done
type Queue struct {
	items   chan model.ConfigRecord
	pending atomic.Int64

	closeOnce sync.Once
	closed    chan struct{}
}

// New 创建容量为 size 的队列，size < 1 时按 1 处理
func New(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		items:  make(chan model.ConfigRecord, size),
		closed: make(chan struct{}),
	}
}

// Push 入队，队列满时阻塞直到有空位、ctx 取消或队列关闭
func (q *Queue) Push(ctx context.Context, rec model.ConfigRecord) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	q.pending.Add(1)
	select {
	case q.items <- rec:
		return nil
	case <-ctx.Done():
		q.pending.Add(-1)
		return ctx.Err()
	case <-q.closed:
		q.pending.Add(-1)
		return ErrClosed
	}
}

// Pop 出队，队列为空时阻塞。取到的记录在 Done 之前仍计入 Len
func (q *Queue) Pop(ctx context.Context) (model.ConfigRecord, error) {
	select {
	case rec := <-q.items:
		return rec, nil
	case <-ctx.Done():
		return model.ConfigRecord{}, ctx.Err()
	case <-q.closed:
		return model.ConfigRecord{}, ErrClosed
	}
}

// Done 标记一条 Pop 出的记录处理完毕
func (q *Queue) Done() {
	q.pending.Add(-1)
}

// Len 尚未处理完的记录数
func (q *Queue) Len() int {
	return int(q.pending.Load())
}

// Cap 队列容量
func (q *Queue) Cap() int { return cap(q.items) }

// Close 关闭队列，阻塞中的 Push/Pop 返回 ErrClosed；可重复调用
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
