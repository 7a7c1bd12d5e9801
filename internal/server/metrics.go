package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Endpoint paths.
const (
	MetricsPath = "/metrics"
	HealthPath  = "/healthz"
)

// =============================================================================
// 📈 指标端点
// =============================================================================

// Config 指标端点配置
type Config struct {
	// 监听地址，":0" 表示随机端口
	Addr string `yaml:"addr" json:"addr"`

	// 请求头读取超时
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" json:"read_header_timeout"`

	// 单次 scrape 的写超时
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`

	// 关闭时等待进行中 scrape 的时间
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig 返回默认配置：仅本机可访问的 9464 端口
func DefaultConfig() Config {
	return Config{
		Addr:              "127.0.0.1:9464",
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// MetricsServer exposes a prometheus gatherer while a command polls jobs.
// It is started at most once and cannot be restarted after Shutdown.
type MetricsServer struct {
	cfg     Config
	handler http.Handler
	logger  *zap.Logger
	errCh   chan error

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	started  time.Time
	closed   bool
}

// NewMetricsServer builds the endpoint. A nil gatherer serves the default
// registry, which is where internal/metrics registers its collectors.
func NewMetricsServer(gatherer prometheus.Gatherer, cfg Config, logger *zap.Logger) *MetricsServer {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "metrics_server"))

	s := &MetricsServer{
		cfg:    cfg,
		logger: logger,
		errCh:  make(chan error, 1),
	}
	mux := http.NewServeMux()
	mux.Handle("GET "+MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:      zap.NewStdLog(logger),
		ErrorHandling: promhttp.ContinueOnError,
	}))
	mux.HandleFunc("GET "+HealthPath, s.health)
	s.handler = mux
	return s
}

// Handler returns the routes without listening, for embedding and tests.
func (s *MetricsServer) Handler() http.Handler {
	return s.handler
}

func (s *MetricsServer) health(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if started.IsZero() {
		_, _ = w.Write([]byte("ok\n"))
		return
	}
	_, _ = fmt.Fprintf(w, "ok uptime=%s\n", time.Since(started).Truncate(time.Second))
}

// Start listens on cfg.Addr and serves in the background. Serve failures
// after a successful Start arrive on Errors.
func (s *MetricsServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return errors.New("metrics server is closed")
	case s.listener != nil:
		return errors.New("metrics server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln
	s.started = time.Now()
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ErrorLog:          zap.NewStdLog(s.logger),
	}
	s.logger.Info("serving metrics", zap.String("url", "http://"+ln.Addr().String()+MetricsPath))

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", zap.Error(err))
			select {
			case s.errCh <- err:
			default:
			}
		}
	}(s.srv)
	return nil
}

// Shutdown waits up to cfg.ShutdownTimeout for in-flight scrapes. Safe to call
// more than once and before Start.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.srv == nil {
		return nil
	}

	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	s.logger.Debug("metrics server stopped")
	return nil
}

// Errors reports a serve failure after Start.
func (s *MetricsServer) Errors() <-chan error {
	return s.errCh
}

// Addr is the bound address once started, else the configured one.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// IsRunning reports whether the server is started and not shut down.
func (s *MetricsServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener != nil && !s.closed
}
