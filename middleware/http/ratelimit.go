package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/rate"
	"github.com/kochabx/passport/errors"
	"github.com/kochabx/passport/log"
	"github.com/kochabx/passport/transport/http"
)

// ErrTooManyRequests 超出限流
var ErrTooManyRequests = errors.TooManyRequests("too many requests")

type RateLimitConfig struct {
	Limiter rate.Limiter
	// KeyFunc 默认按 路由+客户端 IP 计数
	KeyFunc func(*gin.Context) string
	Logger  *log.Logger
}

// RateLimit 超限返回 429 与 Retry-After。限流存储不可用时放行
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = log.G
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string {
			return c.FullPath() + ":" + ClientIP(c)
		}
	}

	return func(c *gin.Context) {
		if cfg.Limiter == nil {
			c.Next()
			return
		}

		res, err := cfg.Limiter.Allow(c.Request.Context(), cfg.KeyFunc(c))
		if err != nil {
			cfg.Logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !res.Allowed {
			secs := int(math.Ceil(res.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
			http.GinJSONE(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
