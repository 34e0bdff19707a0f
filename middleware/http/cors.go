package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CorsConfig 跨域配置。AllowOrigins 支持 "*" 与 "*.example.com"
type CorsConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int // 秒
	SkipPaths        []string
	SkipFunc         func(*gin.Context) bool
}

// DefaultCorsConfig 放行 Authorization 与 X-Session-Token，暴露请求 ID
func DefaultCorsConfig() CorsConfig {
	return CorsConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", HeaderRequestID, "X-Session-Token"},
		// 凭证由请求头携带，不依赖 cookie
		ExposeHeaders: []string{HeaderRequestID},
		MaxAge:        43200,
	}
}

type corsPolicy struct {
	any      bool
	origins  []string
	suffixes []string
	headers  map[string]string
}

func newCorsPolicy(cfg CorsConfig) *corsPolicy {
	p := &corsPolicy{
		headers: map[string]string{
			"Access-Control-Allow-Methods":     strings.Join(cfg.AllowMethods, ", "),
			"Access-Control-Allow-Headers":     strings.Join(cfg.AllowHeaders, ", "),
			"Access-Control-Allow-Credentials": strconv.FormatBool(cfg.AllowCredentials),
			"Access-Control-Max-Age":           strconv.Itoa(cfg.MaxAge),
		},
	}
	if len(cfg.ExposeHeaders) > 0 {
		p.headers["Access-Control-Expose-Headers"] = strings.Join(cfg.ExposeHeaders, ", ")
	}
	for _, o := range cfg.AllowOrigins {
		switch {
		case o == "*":
			// 带凭证时不能回写 "*"，按来源逐个回写
			p.any = true
		case strings.HasPrefix(o, "*."):
			p.suffixes = append(p.suffixes, o[1:])
		default:
			p.origins = append(p.origins, o)
		}
	}
	return p
}

func (p *corsPolicy) allow(origin string) bool {
	if p.any || slices.Contains(p.origins, origin) {
		return true
	}
	return slices.ContainsFunc(p.suffixes, func(s string) bool { return strings.HasSuffix(origin, s) })
}

// Cors 跨域中间件，预检请求直接返回 204
func Cors(cfgs ...CorsConfig) gin.HandlerFunc {
	cfg := DefaultCorsConfig()
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	policy := newCorsPolicy(cfg)
	wildcard := policy.any && !cfg.AllowCredentials
	matcher := NewPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || shouldSkip(c, matcher, cfg.SkipFunc) || !policy.allow(origin) {
			c.Next()
			return
		}

		h := c.Writer.Header()
		if wildcard {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		for k, v := range policy.headers {
			h.Set(k, v)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
