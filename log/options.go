package log

import (
	"github.com/rs/zerolog"
)

// Option Logger 选项
type Option func(*Logger)

// WithLevel 设置日志级别
func WithLevel(level zerolog.Level) Option {
	return func(l *Logger) {
		l.Logger = l.Logger.Level(level)
	}
}

// WithCaller 记录调用位置
func WithCaller() Option {
	return func(l *Logger) {
		l.Logger = l.Logger.With().Caller().Logger()
	}
}

// WithFields 为所有日志附加固定字段，例如 service 名称
func WithFields(fields map[string]any) Option {
	return func(l *Logger) {
		l.Logger = l.Logger.With().Fields(fields).Logger()
	}
}

// WithRedact 屏蔽日志中的密码与令牌字段
func WithRedact() Option {
	return func(l *Logger) {
		l.redact = true
	}
}
