// Package jmx 定义采集侧消费的管理协议能力（连接、按模式枚举 MBean、读取属性），
// 并提供基于 Jolokia (JMX over HTTP) 的实现。
package jmx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrNotFound MBean 或属性不存在
var ErrNotFound = errors.New("jmx: not found")

// ErrSessionClosed 会话已关闭
var ErrSessionClosed = errors.New("jmx: session closed")

// Endpoint 连接目标
type Endpoint struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Address host:port
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// HasCredentials 未配置用户名时匿名连接
func (e Endpoint) HasCredentials() bool { return e.Username != "" }

// Dialer 建立到端点的会话
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint) (Session, error)
}

// Session 单个端点上的一次会话，只在一个 worker 内使用
type Session interface {
	// Query 返回匹配 pattern 的 MBean 名称，无匹配时返回空切片
	Query(ctx context.Context, pattern ObjectName) ([]ObjectName, error)
	// Attributes 返回 MBean 上可读取的全部属性名
	Attributes(ctx context.Context, name ObjectName) ([]string, error)
	// Read 读取单个属性
	Read(ctx context.Context, name ObjectName, attribute string) (Value, error)
	Close() error
}

// RemoteError 端点返回的错误
type RemoteError struct {
	Status  int
	Type    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("jmx remote error %d (%s): %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("jmx remote error %d: %s", e.Status, e.Message)
}

// Is 404 视为 ErrNotFound
func (e *RemoteError) Is(target error) bool {
	return target == ErrNotFound && e.Status == 404
}
