package session

import (
	"time"

	"github.com/kochabx/passport/core/auth/event"
	"github.com/kochabx/passport/log"
)

// Option Manager 选项
type Option func(*Manager)

// WithLocker 启用 HardCap 时必需
func WithLocker(l Locker) Option {
	return func(m *Manager) {
		m.locker = l
	}
}

// WithPublisher 设置事件发布者，默认丢弃
func WithPublisher(p event.Publisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock 注入时钟，需与 token.Codec 使用同一个
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}
