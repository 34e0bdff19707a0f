package auth

import (
	"time"

	"github.com/kochabx/passport/core/validator"
	"github.com/kochabx/passport/log"
)

// Option Service 选项
type Option func(*Service)

func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithValidator(v validator.Validator) Option {
	return func(s *Service) {
		s.validate = v
	}
}

// WithClock 与 session.Manager、token.Codec 使用同一个时钟
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithOperationTimeout 用户表读写的超时时间
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}
