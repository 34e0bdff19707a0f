package redis

import (
	"crypto/tls"
	"time"

	"github.com/kochabx/passport/core/tag"
)

// Config Redis 配置，一个地址为单机模式，多个地址为集群模式，
// 设置 MasterName 为哨兵模式
type Config struct {
	Addrs      []string `json:"addrs" mapstructure:"addrs" default:"localhost:6379"`
	MasterName string   `json:"master_name" mapstructure:"master_name"`

	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`

	// Protocol 2: RESP2, 3: RESP3
	Protocol int `json:"protocol" mapstructure:"protocol" default:"3"`

	DialTimeout  time.Duration `json:"dial_timeout" mapstructure:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" mapstructure:"read_timeout" default:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" mapstructure:"write_timeout" default:"3s"`

	// PoolSize 0 表示 10 * GOMAXPROCS
	PoolSize     int           `json:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" mapstructure:"min_idle_conns"`
	MaxIdleTime  time.Duration `json:"max_idle_time" mapstructure:"max_idle_time" default:"5m"`
	PoolTimeout  time.Duration `json:"pool_timeout" mapstructure:"pool_timeout" default:"4s"`

	// MaxRetries -1 禁用重试
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	TLS bool `json:"tls" mapstructure:"tls"`

	// 可观测性
	Tracing bool          `json:"tracing" mapstructure:"tracing"`
	Metrics bool          `json:"metrics" mapstructure:"metrics"`
	Debug   bool          `json:"debug" mapstructure:"debug"`
	SlowLog time.Duration `json:"slow_log" mapstructure:"slow_log" default:"100ms"`
}

// ApplyDefaults 应用默认值
func (c *Config) ApplyDefaults() error {
	return tag.ApplyDefaults(c)
}

// Single 单机模式配置
func Single(addr string) *Config {
	return &Config{Addrs: []string{addr}}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if len(c.Addrs) == 0 {
		return ErrEmptyAddrs
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return ErrInvalidTimeout
	}
	return nil
}

func (c *Config) mode() string {
	switch {
	case c.MasterName != "":
		return "sentinel"
	case len(c.Addrs) > 1:
		return "cluster"
	default:
		return "single"
	}
}

func (c *Config) tlsConfig() *tls.Config {
	if !c.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}
