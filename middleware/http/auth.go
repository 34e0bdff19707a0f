package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/passport/core/auth"
	"github.com/kochabx/passport/transport/http"
)

const bearerScheme = "Bearer "

// AccessVerifier 校验访问令牌，只依赖令牌本身
type AccessVerifier interface {
	VerifyAccessToken(ctx context.Context, bearer string) (*auth.Identity, error)
}

type AuthConfig struct {
	Verifier  AccessVerifier
	SkipPaths []string
	SkipFunc  func(*gin.Context) bool
}

type identityKey struct{}

// Auth 校验 Authorization: Bearer <token>，成功后将身份写入请求上下文
func Auth(cfg AuthConfig) gin.HandlerFunc {
	matcher := NewPathMatcher(cfg.SkipPaths)

	return func(c *gin.Context) {
		if shouldSkip(c, matcher, cfg.SkipFunc) {
			c.Next()
			return
		}

		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok || cfg.Verifier == nil {
			http.GinJSONE(c, auth.ErrInvalidToken)
			return
		}

		id, err := cfg.Verifier.VerifyAccessToken(c.Request.Context(), raw)
		if err != nil {
			http.GinJSONE(c, err)
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) < len(bearerScheme) || !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(bearerScheme):])
	return tok, tok != ""
}

// WithIdentity 返回携带身份的上下文
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom 取出 Auth 写入的身份
func IdentityFrom(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*auth.Identity)
	return id, ok && id != nil
}
