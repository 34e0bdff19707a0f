package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/rate"
	"github.com/kochabx/passport/log"
	middleware "github.com/kochabx/passport/middleware/http"
)

// RouterConfig 路由配置
type RouterConfig struct {
	CORSOrigins []string
	// SkipLogPaths 不记录访问日志的路径，例如探活
	SkipLogPaths []string
	// Limiter 为空时不限流
	Limiter rate.Limiter
	Logger  *log.Logger
}

// NewRouter 创建挂载了全部中间件与路由的 gin 引擎
func NewRouter(svc AuthService, cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.G
	}

	r := gin.New()
	r.Use(
		middleware.Recovery(middleware.RecoveryConfig{StackTrace: true, Logger: cfg.Logger}),
		middleware.RequestID(),
		middleware.Logger(middleware.LoggerConfig{SkipPaths: cfg.SkipLogPaths, Logger: cfg.Logger}),
	)
	if len(cfg.CORSOrigins) > 0 {
		cors := middleware.DefaultCorsConfig()
		cors.AllowOrigins = cfg.CORSOrigins
		r.Use(middleware.Cors(cors))
	}

	NewHandler(svc, WithLimiter(cfg.Limiter)).Mount(r)
	return r
}
