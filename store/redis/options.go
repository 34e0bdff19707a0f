package redis

import (
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/kochabx/passport/log"
)

// Option 客户端选项
type Option func(*clientOptions)

type clientOptions struct {
	hooks []redis.Hook

	enableMetrics bool
	enableTracing bool
	enableDebug   bool
	tracingOpts   []redisotel.TracingOption
	metricsOpts   []redisotel.MetricsOption

	logger          *log.Logger
	slowQueryThresh time.Duration
}

// WithHooks 添加自定义 Hook
func WithHooks(hooks ...redis.Hook) Option {
	return func(o *clientOptions) {
		o.hooks = append(o.hooks, hooks...)
	}
}

// WithMetrics 启用 OpenTelemetry 指标
func WithMetrics(opts ...redisotel.MetricsOption) Option {
	return func(o *clientOptions) {
		o.enableMetrics = true
		o.metricsOpts = opts
	}
}

// WithTracing 启用 OpenTelemetry 链路追踪
func WithTracing(opts ...redisotel.TracingOption) Option {
	return func(o *clientOptions) {
		o.enableTracing = true
		o.tracingOpts = opts
	}
}

// WithDebug 记录每条命令，超过阈值的记为慢查询
func WithDebug(slowQueryThreshold time.Duration) Option {
	return func(o *clientOptions) {
		o.enableDebug = true
		o.slowQueryThresh = slowQueryThreshold
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *log.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// applyOptions 合并配置文件中的可观测性开关与代码中的选项
func applyOptions(cfg *Config, opts []Option) *clientOptions {
	o := &clientOptions{
		enableTracing:   cfg.Tracing,
		enableMetrics:   cfg.Metrics,
		enableDebug:     cfg.Debug,
		slowQueryThresh: cfg.SlowLog,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
