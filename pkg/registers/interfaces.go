package registers

import "context"

// Agent 自监控采集器的生命周期管理
type Agent interface {
	Register(collector Collector)
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Collector 自监控采集器接口
type Collector interface {
	Name() string                      // 唯一标识
	Init() error                       // 预检查资源
	Collect(ctx context.Context) error // 更新指标
	Close() error
}
