package event

import (
	"github.com/kochabx/passport/core/tag"
	"github.com/kochabx/passport/store/kafka"
)

// Config 事件发布配置
type Config struct {
	Enabled bool         `json:"enabled" mapstructure:"enabled"`
	Topic   string       `json:"topic" mapstructure:"topic" default:"passport.sessions"`
	Kafka   kafka.Config `json:"kafka" mapstructure:"kafka"`
}

// ApplyDefaults 应用默认值
func (c *Config) ApplyDefaults() error {
	return tag.ApplyDefaults(c)
}
