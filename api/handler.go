// Package api HTTP 接口层，把 /api/v1 路由映射到认证服务
package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/auth"
	"github.com/kochabx/passport/core/auth/session"
	"github.com/kochabx/passport/core/rate"
	middleware "github.com/kochabx/passport/middleware/http"
)

// HeaderSessionToken 客户端出示会话令牌的请求头
const HeaderSessionToken = "X-Session-Token"

// AuthService 接口层依赖的认证操作
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.UserIdentity, error)
	Login(ctx context.Context, in auth.LoginInput) (*session.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*session.TokenPair, error)
	Logout(ctx context.Context, sessionToken string) error
	LogoutAll(ctx context.Context, userID string) error
	VerifyAccessToken(ctx context.Context, bearer string) (*auth.Identity, error)
	VerifySession(ctx context.Context, sessionToken string) (*auth.UserIdentity, error)
	Me(ctx context.Context, userID string) (*auth.UserIdentity, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	UpdateProfile(ctx context.Context, userID string, in auth.ProfileInput) (*auth.UserIdentity, error)
	Deactivate(ctx context.Context, userID string) error
}

var _ AuthService = (*auth.Service)(nil)

// Handler 持有认证服务
type Handler struct {
	svc     AuthService
	limiter rate.Limiter
}

type HandlerOption func(*Handler)

// WithLimiter 对登录、注册、刷新按客户端 IP 限流
func WithLimiter(l rate.Limiter) HandlerOption {
	return func(h *Handler) {
		h.limiter = l
	}
}

func NewHandler(svc AuthService, opts ...HandlerOption) *Handler {
	h := &Handler{svc: svc}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mount 在 r 上注册 /api/v1 路由
func (h *Handler) Mount(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	bearer := middleware.Auth(middleware.AuthConfig{Verifier: h.svc})
	limit := middleware.RateLimit(middleware.RateLimitConfig{Limiter: h.limiter})

	a := v1.Group("/auth")
	a.POST("/register", limit, h.register)
	a.POST("/login", limit, h.login)
	a.POST("/refresh", limit, h.refresh)
	a.GET("/session", h.verifySession)
	a.POST("/logout", bearer, h.logout)
	a.POST("/logout-all", bearer, h.logoutAll)
	a.GET("/me", bearer, h.me)
	a.GET("/verify", bearer, h.verify)

	u := v1.Group("/users/me", bearer)
	u.PUT("", h.updateProfile)
	u.PUT("/password", h.changePassword)
	u.DELETE("", h.deactivate)
}

// bind 请求体解析失败按校验错误返回
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return auth.ErrValidation.WithMetadata(map[string]string{"body": "malformed JSON body"}).WithCause(err)
	}
	return nil
}

// caller Auth 中间件之后必然存在
func caller(c *gin.Context) *auth.Identity {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		return &auth.Identity{}
	}
	return id
}

func required(field string) error {
	return auth.ErrValidation.WithMetadata(map[string]string{field: field + " is a required field"})
}
