// Package password 基于 bcrypt 的密码摘要
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/kochabx/passport/core/tag"
)

var (
	ErrInvalidCost = errors.New("password: bcrypt cost out of range")
	// ErrTooLong 口令超过 bcrypt 的 72 字节上限
	ErrTooLong = errors.New("password: longer than 72 bytes")
)

// Config 摘要配置
type Config struct {
	BcryptCost int `json:"bcrypt_cost" mapstructure:"bcrypt_cost" default:"10" validate:"gte=4,lte=31"`
}

// ApplyDefaults 应用默认值
func (c *Config) ApplyDefaults() error {
	return tag.ApplyDefaults(c)
}

// Hasher 生成与校验密码摘要
type Hasher struct {
	cost int
}

// New 创建 Hasher，cost 为 0 时使用 bcrypt.DefaultCost
func New(cfg Config) (*Hasher, error) {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}
	return &Hasher{cost: cost}, nil
}

// Hash 每次调用使用新的盐
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrTooLong
	}
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(digest), nil
}

// Verify 常量时间比较，摘要格式错误同样返回 false
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
