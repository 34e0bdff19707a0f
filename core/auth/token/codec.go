package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Codec 签发与校验访问令牌、刷新令牌，只依赖本地密钥
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	issuer string
	now    func() time.Time
}

// Option Codec 选项
type Option func(*Codec)

// WithClock 注入时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// New 创建 Codec
func New(cfg *Config, opts ...Option) (*Codec, error) {
	if cfg == nil || cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	method, err := cfg.method()
	if err != nil {
		return nil, err
	}

	c := &Codec{
		secret: []byte(cfg.Secret),
		method: method,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue 签发令牌，exp = now + ttl，每个令牌带独立 jti
func (c *Codec) Issue(sub Subject, kind Kind, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}
	if !kind.Valid() {
		return "", fmt.Errorf("token: unknown kind %q", kind)
	}

	now := c.now()
	claims := &Claims{
		UserID: sub.UserID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.Username,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify 校验签名、算法、有效期、签发者与类型，任一失败都返回 ErrInvalidToken
func (c *Codec) Verify(raw string, kind Kind) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !tok.Valid || claims.Kind != kind || claims.Subject == "" || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
