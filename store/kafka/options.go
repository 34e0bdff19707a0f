package kafka

import (
	"github.com/segmentio/kafka-go"

	"github.com/kochabx/passport/log"
)

// Option 客户端选项
type Option func(*clientOptions)

type clientOptions struct {
	logger    *log.Logger
	transport *kafka.Transport
}

// WithLogger 设置日志记录器
func WithLogger(logger *log.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithTransport 自定义 Transport
func WithTransport(transport *kafka.Transport) Option {
	return func(o *clientOptions) {
		o.transport = transport
	}
}

func applyOptions(opts []Option) *clientOptions {
	o := &clientOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
