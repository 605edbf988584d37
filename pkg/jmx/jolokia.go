package jmx

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

const defaultJolokiaTimeout = 10 * time.Second

// JolokiaDialer 通过 Jolokia HTTP 代理访问 JMX
type JolokiaDialer struct {
	scheme  string
	path    string
	timeout time.Duration
	client  *http.Client
}

// JolokiaOption 可选参数
type JolokiaOption func(*JolokiaDialer)

// WithScheme http 或 https
func WithScheme(scheme string) JolokiaOption {
	return func(d *JolokiaDialer) { d.scheme = scheme }
}

// WithBasePath Jolokia 挂载路径，默认 /jolokia
func WithBasePath(p string) JolokiaOption {
	return func(d *JolokiaDialer) { d.path = "/" + strings.Trim(p, "/") }
}

// WithTimeout 单次请求超时
func WithTimeout(timeout time.Duration) JolokiaOption {
	return func(d *JolokiaDialer) { d.timeout = timeout }
}

// WithHTTPClient 替换底层 http.Client（测试时注入 mock transport）
func WithHTTPClient(c *http.Client) JolokiaOption {
	return func(d *JolokiaDialer) { d.client = c }
}

// WithInsecureSkipVerify https 时跳过证书校验
func WithInsecureSkipVerify() JolokiaOption {
	return func(d *JolokiaDialer) {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		d.client = &http.Client{Transport: tr}
	}
}

// NewJolokiaDialer 创建 Dialer
func NewJolokiaDialer(opts ...JolokiaOption) *JolokiaDialer {
	d := &JolokiaDialer{
		scheme:  "http",
		path:    "/jolokia",
		timeout: defaultJolokiaTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		d.client = &http.Client{}
	}
	return d
}

// Dial 探测 /version 确认代理可达且认证通过
func (d *JolokiaDialer) Dial(ctx context.Context, ep Endpoint) (Session, error) {
	s := &jolokiaSession{
		base:    fmt.Sprintf("%s://%s%s", d.scheme, ep.Address(), d.path),
		ep:      ep,
		client:  d.client,
		timeout: d.timeout,
	}
	if _, err := s.do(ctx, http.MethodGet, "/version", nil); err != nil {
		return nil, fmt.Errorf("connect %s: %w", ep.Address(), err)
	}
	return s, nil
}

type jolokiaRequest struct {
	Type      string         `json:"type"`
	MBean     string         `json:"mbean,omitempty"`
	Attribute string         `json:"attribute,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
}

type jolokiaResponse struct {
	Status    int             `json:"status"`
	Value     json.RawMessage `json:"value"`
	Error     string          `json:"error"`
	ErrorType string          `json:"error_type"`
}

// 保持 MBean 注册时的 key 顺序，Jolokia 默认 canonicalNaming=true 会按字母重排
func requestConfig(extra map[string]any) map[string]any {
	cfg := map[string]any{"canonicalNaming": false}
	for k, v := range extra {
		cfg[k] = v
	}
	return cfg
}

type jolokiaSession struct {
	base    string
	ep      Endpoint
	client  *http.Client
	timeout time.Duration
	closed  atomic.Bool
}

func (s *jolokiaSession) Query(ctx context.Context, pattern ObjectName) ([]ObjectName, error) {
	raw, err := s.do(ctx, http.MethodPost, "/", jolokiaRequest{
		Type:   "search",
		MBean:  pattern.String(),
		Config: requestConfig(nil),
	})
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}
	out := make([]ObjectName, 0, len(names))
	for _, n := range names {
		out = append(out, ObjectName(n))
	}
	return out, nil
}

func (s *jolokiaSession) Attributes(ctx context.Context, name ObjectName) ([]string, error) {
	raw, err := s.do(ctx, http.MethodPost, "/", jolokiaRequest{
		Type:   "read",
		MBean:  name.String(),
		Config: requestConfig(map[string]any{"ignoreErrors": true}),
	})
	if err != nil {
		return nil, err
	}
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("decode attribute list of %s: %w", name, err)
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *jolokiaSession) Read(ctx context.Context, name ObjectName, attribute string) (Value, error) {
	raw, err := s.do(ctx, http.MethodPost, "/", jolokiaRequest{
		Type:      "read",
		MBean:     name.String(),
		Attribute: attribute,
		Config:    requestConfig(nil),
	})
	if err != nil {
		return Value{}, err
	}
	var tree any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&tree); err != nil {
		return Value{}, fmt.Errorf("decode %s/%s: %w", name, attribute, err)
	}
	return FromJSON(tree), nil
}

// Close HTTP 无长连接状态，只标记关闭
func (s *jolokiaSession) Close() error {
	if s.closed.Swap(true) {
		return ErrSessionClosed
	}
	return nil
}

func (s *jolokiaSession) do(ctx context.Context, method, suffix string, body any) (json.RawMessage, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.base+suffix, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.ep.HasCredentials() {
		req.SetBasicAuth(s.ep.Username, s.ep.Password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	var out jolokiaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Status != http.StatusOK {
		return nil, &RemoteError{Status: out.Status, Type: out.ErrorType, Message: out.Error}
	}
	return out.Value, nil
}
