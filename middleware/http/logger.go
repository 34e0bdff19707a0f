package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/auth"
	"github.com/kochabx/passport/errors"
	"github.com/kochabx/passport/log"
)

// LoggerConfig 日志中间件配置
//
// 请求体与响应体都可能携带口令或令牌，不记录
type LoggerConfig struct {
	HandlerName bool                    // 是否记录处理器名称
	SkipPaths   []string                // 跳过记录的路径
	SkipFunc    func(*gin.Context) bool // 动态跳过判断函数
	Logger      *log.Logger
}

// Logger 创建日志中间件
func Logger(cfgs ...LoggerConfig) gin.HandlerFunc {
	cfg := LoggerConfig{}
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	if cfg.Logger == nil {
		cfg.Logger = log.G
	}

	matcher := NewPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		if shouldSkip(c, matcher, cfg.SkipFunc) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := cfg.Logger.Info()
		if status >= 500 {
			event = cfg.Logger.Error()
		} else if status >= 400 {
			event = cfg.Logger.Warn()
		}

		event = event.
			Int("status", status).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Dur("duration", time.Since(start)).
			Str("client_ip", ClientIP(c))

		if requestID := c.Request.Header.Get(HeaderRequestID); requestID != "" {
			event = event.Str("request_id", requestID)
		}
		if id, ok := IdentityFrom(c.Request.Context()); ok {
			event = event.Str("user_id", id.UserID)
		}
		if cfg.HandlerName {
			event = event.Str("handler", c.HandlerName())
		}

		if last := c.Errors.Last(); last != nil {
			e := errors.FromError(last.Err)
			event = event.Int("code", e.Code).Str("error", e.Message)
			// 底层原因只进日志
			if cause := e.GetCause(); cause != nil && !errors.Is(last.Err, auth.ErrValidation) {
				event = event.AnErr("cause", cause)
			}
		}

		event.Send()
	}
}
