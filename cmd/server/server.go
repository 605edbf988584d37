package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jmx-collector/pkg/config"
	"github.com/jmx-collector/pkg/scheduler"
)

// StatusProvider /status 的数据来源，由 scheduler.Scheduler 实现
type StatusProvider interface {
	State() scheduler.State
	LastReport() (scheduler.CycleReport, bool)
}

// Server HTTP服务实例，封装核心依赖和配置
type Server struct {
	cfg      *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
	registry *prometheus.Registry
	status   StatusProvider
	mux      *customMux
}

// statusWriter 包装ResponseWriter，捕获状态码
type statusWriter struct {
	http.ResponseWriter
	status int
}

// customMux 记录注册过的路由，启动日志里输出
type customMux struct {
	http.ServeMux
	routes []string
	mu     sync.Mutex
}

const defaultShutdownTimeout = 5 * time.Second

// Handle 注册路由时记录路径
func (m *customMux) Handle(pattern string, handler http.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, pattern)
	m.ServeMux.Handle(pattern, handler)
}

func (m *customMux) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	m.Handle(pattern, http.HandlerFunc(handler))
}

// NewHTTPServer 创建HTTP服务实例
func NewHTTPServer(cfg *config.ServerConfig, logger *zap.Logger, registry *prometheus.Registry, status StatusProvider) *Server {
	srv := &Server{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		status:   status,
		mux:      &customMux{},
	}
	srv.registerEndpoints()
	srv.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.logMiddleware(srv.mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return srv
}

// Handler 供测试直接调用
func (s *Server) Handler() http.Handler { return s.server.Handler }

// logMiddleware 统一请求日志
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.logger.Debug(
			"HTTP request",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

const indexHTML = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
	<meta charset="UTF-8">
	<title>JMX Collector</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 40px; }
		a { display: block; margin: 8px 0; font-size: 18px; }
	</style>
</head>
<body>
	<h1>JMX Collector</h1>
	<a href="/health">/health - 健康检查</a>
	<a href="/status">/status - 最近一轮采集</a>
	<a href="/metrics">/metrics - Prometheus 指标暴露</a>
</body>
</html>
`

// statusResponse /status 返回体
type statusResponse struct {
	State     scheduler.State        `json:"state"`
	LastCycle *scheduler.CycleReport `json:"last_cycle,omitempty"`
}

// registerEndpoints 注册核心路由
func (s *Server) registerEndpoints() {
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(indexHTML))
	})

	s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(s.logger),
	}))

	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if s.status == nil {
			http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
			return
		}
		resp := statusResponse{State: s.status.State()}
		if report, ok := s.status.LastReport(); ok {
			resp.LastCycle = &report
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			s.logger.Warn("encode status failed", zap.Error(err))
		}
	})
}

// WriteHeader 捕获状态码
func (w *statusWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Start 启动HTTP服务（非阻塞）
func (s *Server) Start() error {
	s.logger.Info(
		"starting HTTP server",
		zap.String("listen_addr", s.cfg.Addr),
		zap.Strings("handle_funcs", s.mux.routes),
	)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown 优雅关闭HTTP服务
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded")
			return nil
		}
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	s.logger.Info("HTTP server shutdown successfully")
	return nil
}
