// Package event 会话审计事件
package event

import (
	"context"
	"time"
)

// Type 事件类型
type Type string

const (
	TypeLogin     Type = "login"
	TypeRefresh   Type = "refresh"
	TypeLogout    Type = "logout"
	TypeLogoutAll Type = "logout_all"
	TypeEvicted   Type = "evicted"
)

// Event 会话生命周期事件，不包含任何令牌
type Event struct {
	Type      Type      `json:"type"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	SessionID uint64    `json:"session_id,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Count     int       `json:"count,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher 发布失败只应记录日志，不影响认证流程
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Noop 丢弃全部事件
type Noop struct{}

func (Noop) Publish(context.Context, ...Event) error { return nil }
