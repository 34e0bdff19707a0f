package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Kind 令牌类型
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Valid 是否为已知类型
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Subject 签发时由调用方提供的身份
type Subject struct {
	Username string
	UserID   string
}

// Claims 固定的令牌声明，不接受额外字段
type Claims struct {
	UserID string `json:"uid"`
	Kind   Kind   `json:"kind"`
	jwt.RegisteredClaims
}
