package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kochabx/passport/core/tag"
)

// Config Kafka 生产者配置
type Config struct {
	Brokers []string `json:"brokers" mapstructure:"brokers" default:"localhost:9092"`

	// SASL/PLAIN，用户名为空时不认证
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`

	// Balancer hash 保证同一 key（用户）的事件进入同一分区
	Balancer Balancer `json:"balancer" mapstructure:"balancer" default:"hash"`

	AllowAutoTopicCreation bool `json:"allow_auto_topic_creation" mapstructure:"allow_auto_topic_creation"`

	// RequiredAcks -1: all, 0: none, 1: leader
	RequiredAcks int `json:"required_acks" mapstructure:"required_acks" default:"1"`

	Timeout      time.Duration `json:"timeout" mapstructure:"timeout" default:"3s"`
	BatchTimeout time.Duration `json:"batch_timeout" mapstructure:"batch_timeout" default:"10ms"`
	CloseTimeout time.Duration `json:"close_timeout" mapstructure:"close_timeout" default:"5s"`
}

// Balancer 分区策略
type Balancer string

const (
	BalancerHash       Balancer = "hash"
	BalancerLeastBytes Balancer = "least_bytes"
	BalancerRoundRobin Balancer = "round_robin"
)

// UnmarshalText 支持配置文件中的字符串
func (b *Balancer) UnmarshalText(text []byte) error {
	switch v := Balancer(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case BalancerHash, BalancerLeastBytes, BalancerRoundRobin:
		*b = v
		return nil
	default:
		return ErrInvalidBalancer
	}
}

// ApplyDefaults 应用默认值
func (c *Config) ApplyDefaults() error {
	return tag.ApplyDefaults(c)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrEmptyBrokers
	}
	for _, b := range c.Brokers {
		if strings.TrimSpace(b) == "" {
			return ErrEmptyBrokers
		}
	}
	return nil
}

func (c *Config) balancer() kafka.Balancer {
	switch c.Balancer {
	case BalancerLeastBytes:
		return &kafka.LeastBytes{}
	case BalancerRoundRobin:
		return &kafka.RoundRobin{}
	default:
		return &kafka.Hash{}
	}
}

func (c *Config) requiredAcks() kafka.RequiredAcks {
	switch c.RequiredAcks {
	case -1:
		return kafka.RequireAll
	case 0:
		return kafka.RequireNone
	default:
		return kafka.RequireOne
	}
}
