package session

import (
	"time"

	"github.com/kochabx/passport/core/tag"
)

// Config 会话管理配置
type Config struct {
	MaxPerUser       int           `json:"max_per_user" mapstructure:"max_per_user" default:"5" validate:"gte=1"`
	OperationTimeout time.Duration `json:"operation_timeout" mapstructure:"operation_timeout" default:"5s" validate:"gt=0"`
	// HardCap 使用 redis 用户锁保证会话数严格不超过上限
	HardCap       bool `json:"hard_cap" mapstructure:"hard_cap"`
	TouchPoolSize int  `json:"touch_pool_size" mapstructure:"touch_pool_size" default:"64" validate:"gte=1"`
}

// ApplyDefaults 应用默认值
func (c *Config) ApplyDefaults() error {
	return tag.ApplyDefaults(c)
}
