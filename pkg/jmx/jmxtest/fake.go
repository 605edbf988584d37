// Package jmxtest 提供内存版 jmx.Dialer，供 worker/scheduler 单测使用
package jmxtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/jmx-collector/pkg/jmx"
)

// ErrConnectionRefused 未注册的端点
var ErrConnectionRefused = errors.New("jmxtest: connection refused")

// Dialer 内存版 Dialer，按 host:port 路由到 Endpoint
type Dialer struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint

	dials atomic.Int64
}

// NewDialer 创建空 Dialer
func NewDialer() *Dialer {
	return &Dialer{endpoints: map[string]*Endpoint{}}
}

// Endpoint 一个假的 JMX 端点
type Endpoint struct {
	mu        sync.RWMutex
	beans     map[jmx.ObjectName]map[string]jmx.Value
	failures  map[string]error
	username  string
	password  string
	closeErr  error
	closes    atomic.Int64
	readHooks []func(jmx.ObjectName, string)
	ctxHooks  []func(context.Context, jmx.ObjectName, string) error
}

// AddEndpoint 注册端点
func (d *Dialer) AddEndpoint(host string, port int) *Endpoint {
	ep := &Endpoint{
		beans:    map[jmx.ObjectName]map[string]jmx.Value{},
		failures: map[string]error{},
	}
	d.mu.Lock()
	d.endpoints[jmx.Endpoint{Host: host, Port: port}.Address()] = ep
	d.mu.Unlock()
	return ep
}

// Dials 累计 Dial 次数
func (d *Dialer) Dials() int64 { return d.dials.Load() }

// Dial 实现 jmx.Dialer
func (d *Dialer) Dial(ctx context.Context, target jmx.Endpoint) (jmx.Session, error) {
	d.dials.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	ep, ok := d.endpoints[target.Address()]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dial %s: %w", target.Address(), ErrConnectionRefused)
	}
	ep.mu.RLock()
	defer ep.mu.RUnlock()
	if ep.username != "" && (ep.username != target.Username || ep.password != target.Password) {
		return nil, &jmx.RemoteError{Status: 401, Message: "authentication failed"}
	}
	return &session{ep: ep}, nil
}

// RequireAuth 端点要求认证
func (e *Endpoint) RequireAuth(username, password string) *Endpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.username, e.password = username, password
	return e
}

// AddMBean 注册 MBean 及其属性
func (e *Endpoint) AddMBean(name string, attrs map[string]jmx.Value) *Endpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(map[string]jmx.Value, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	e.beans[jmx.ObjectName(name)] = cp
	return e
}

// FailRead 让某个属性读取失败
func (e *Endpoint) FailRead(name, attribute string, err error) *Endpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[name+"/"+attribute] = err
	return e
}

// FailClose Close 返回错误
func (e *Endpoint) FailClose(err error) *Endpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeErr = err
	return e
}

// OnRead 每次 Read 前回调（模拟慢端点、推进 mock 时钟）
func (e *Endpoint) OnRead(hook func(name jmx.ObjectName, attribute string)) *Endpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.readHooks = append(e.readHooks, hook)
	return e
}

// OnReadContext 每次 Read 前回调，可读取 ctx；返回非 nil 错误时 Read 直接失败
func (e *Endpoint) OnReadContext(hook func(ctx context.Context, name jmx.ObjectName, attribute string) error) *Endpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctxHooks = append(e.ctxHooks, hook)
	return e
}

// HangRead 某个属性的 Read 一直阻塞到 ctx 结束（模拟无响应的端点）
func (e *Endpoint) HangRead(name, attribute string) *Endpoint {
	return e.OnReadContext(func(ctx context.Context, n jmx.ObjectName, attr string) error {
		if n.String() != name || attr != attribute {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	})
}

// PanicRead 某个属性的 Read 直接 panic（模拟有缺陷的适配器）
func (e *Endpoint) PanicRead(name, attribute string) *Endpoint {
	return e.OnReadContext(func(_ context.Context, n jmx.ObjectName, attr string) error {
		if n.String() == name && attr == attribute {
			panic(fmt.Sprintf("jmxtest: read %s/%s", name, attribute))
		}
		return nil
	})
}

// Closes 会话关闭次数
func (e *Endpoint) Closes() int64 { return e.closes.Load() }

type session struct {
	ep     *Endpoint
	closed atomic.Bool
}

func (s *session) Query(ctx context.Context, pattern jmx.ObjectName) ([]jmx.ObjectName, error) {
	if s.closed.Load() {
		return nil, jmx.ErrSessionClosed
	}
	s.ep.mu.RLock()
	defer s.ep.mu.RUnlock()

	var out []jmx.ObjectName
	for name := range s.ep.beans {
		ok, err := jmx.MatchPattern(pattern, name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *session) Attributes(ctx context.Context, name jmx.ObjectName) ([]string, error) {
	if s.closed.Load() {
		return nil, jmx.ErrSessionClosed
	}
	s.ep.mu.RLock()
	defer s.ep.mu.RUnlock()

	attrs, ok := s.ep.beans[name]
	if !ok {
		return nil, fmt.Errorf("mbean %s: %w", name, jmx.ErrNotFound)
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *session) Read(ctx context.Context, name jmx.ObjectName, attribute string) (jmx.Value, error) {
	if s.closed.Load() {
		return jmx.Value{}, jmx.ErrSessionClosed
	}
	s.ep.mu.RLock()
	hooks := s.ep.readHooks
	ctxHooks := s.ep.ctxHooks
	s.ep.mu.RUnlock()
	for _, h := range hooks {
		h(name, attribute)
	}
	for _, h := range ctxHooks {
		if err := h(ctx, name, attribute); err != nil {
			return jmx.Value{}, err
		}
	}

	s.ep.mu.RLock()
	defer s.ep.mu.RUnlock()
	if err, ok := s.ep.failures[name.String()+"/"+attribute]; ok {
		return jmx.Value{}, err
	}
	attrs, ok := s.ep.beans[name]
	if !ok {
		return jmx.Value{}, fmt.Errorf("mbean %s: %w", name, jmx.ErrNotFound)
	}
	v, ok := attrs[attribute]
	if !ok {
		return jmx.Value{}, fmt.Errorf("attribute %s/%s: %w", name, attribute, jmx.ErrNotFound)
	}
	return v, nil
}

func (s *session) Close() error {
	if s.closed.Swap(true) {
		return jmx.ErrSessionClosed
	}
	s.ep.closes.Add(1)
	s.ep.mu.RLock()
	defer s.ep.mu.RUnlock()
	return s.ep.closeErr
}
