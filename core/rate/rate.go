// Package rate 基于 redis 的分布式限流，用于登录等易被暴力尝试的接口
package rate

import (
	"context"
	"time"

	"github.com/kochabx/passport/core/tag"
)

// Config 限流配置，每个 key 在 Window 内最多 Limit 次
type Config struct {
	Enabled bool          `json:"enabled" mapstructure:"enabled" default:"true"`
	Window  time.Duration `json:"window" mapstructure:"window" default:"1m" validate:"gt=0"`
	Limit   int           `json:"limit" mapstructure:"limit" default:"20" validate:"gte=1"`
	Prefix  string        `json:"prefix" mapstructure:"prefix" default:"passport:rate"`
}

// ApplyDefaults 应用默认值
func (c *Config) ApplyDefaults() error {
	return tag.ApplyDefaults(c)
}

// Result 一次判定的结果
type Result struct {
	Allowed bool
	// RetryAfter 被拒绝时距离窗口内最早一次请求过期的时间
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
