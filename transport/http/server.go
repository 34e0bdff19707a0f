package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kochabx/passport/log"
	"github.com/kochabx/passport/transport"
	"github.com/kochabx/passport/transport/http/metrics"
)

var _ transport.Server = (*Server)(nil)

const (
	defaultName = "http"
	defaultAddr = ":8080"
)

// Meta is the metadata of the server.
type Meta struct {
	Name string
}

// HealthCheck 返回非 nil 表示依赖不可用
type HealthCheck func(ctx context.Context) error

type Server struct {
	meta    Meta
	config  Config
	server  *http.Server
	metrics *metrics.Prometheus
	checks  map[string]HealthCheck
	logger  *log.Logger
}

type Option func(*Server)

func WithMeta(meta Meta) Option {
	return func(s *Server) {
		s.meta = meta
	}
}

// WithMetrics 使用指定的指标注册表，默认为 metrics.Prom
func WithMetrics(p *metrics.Prometheus) Option {
	return func(s *Server) {
		s.metrics = p
	}
}

// WithHealthCheck 注册健康检查依赖
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) {
		if check != nil {
			s.checks[name] = check
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(cfg Config, handler http.Handler, opts ...Option) *Server {
	if err := cfg.ApplyDefaults(); err != nil {
		log.Error().Err(err).Msg("apply http server defaults")
	}

	s := &Server{
		meta:    Meta{Name: defaultName},
		config:  cfg,
		metrics: metrics.Prom,
		checks:  make(map[string]HealthCheck),
		logger:  log.G,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	additionalHandlers(s)

	return s
}

// Handler 返回挂载了附加路由的处理器，测试中配合 httptest 使用
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Run() error {
	if ok := transport.ValidateAddress(s.server.Addr); !ok {
		s.logger.Warn().Msgf("invalid address %s, using default address: %s", s.server.Addr, defaultAddr)
		s.server.Addr = defaultAddr
	}
	s.logger.Info().Msgf("%s server listening on %s", s.meta.Name, s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()
	}
	return s.server.Shutdown(ctx)
}

func additionalHandlers(s *Server) {
	if r, ok := s.server.Handler.(*gin.Engine); ok {
		handleMetrics(s, r)
		handleHealth(s, r)
	}
}

func handleMetrics(s *Server, r *gin.Engine) {
	opt := s.config.Metrics
	if !opt.Enabled {
		return
	}
	if opt.EnabledGoCollector {
		s.metrics.WithGoCollectorRuntimeMetrics()
	}
	if opt.EnabledBuildInfoCollector {
		s.metrics.WithBuildInfoCollector()
	}

	r.GET(opt.Path, gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))
}

func handleHealth(s *Server, r *gin.Engine) {
	if !s.config.Health.Enabled {
		return
	}
	r.GET(s.config.Health.Path, func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}

		body := gin.H{"status": "ok", "dependencies": deps}
		if status != http.StatusOK {
			body["status"] = "unavailable"
		}
		c.JSON(status, body)
	})
}
