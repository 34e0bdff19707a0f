package session

import (
	"context"
	"time"
)

// UserStore 用户持久化
type UserStore interface {
	// Create 用户名或邮箱冲突时返回 ErrDuplicateUsername / ErrDuplicateEmail
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	ExistsUsername(ctx context.Context, username string) (bool, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id, fullName, email string) error
	Deactivate(ctx context.Context, id string) error
}

// SessionStore 会话持久化，是会话状态的唯一可信来源
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	// ListActive 按创建时间倒序
	ListActive(ctx context.Context, userID string) ([]Session, error)
	// FindByRefreshToken 只匹配 is_active 且 expires_at > now 的行
	FindByRefreshToken(ctx context.Context, refreshToken string, now time.Time) (*Session, error)
	FindByToken(ctx context.Context, sessionToken string) (*Session, error)
	// UpdateRefreshToken 仅更新仍处于活跃状态的行，否则返回 ErrSessionNotFound
	UpdateRefreshToken(ctx context.Context, id uint64, refreshToken string, at time.Time) error
	Touch(ctx context.Context, sessionToken string, at time.Time) error
	// Deactivate 返回实际被置为非活跃的行数
	Deactivate(ctx context.Context, ids ...uint64) (int64, error)
	// DeactivateByToken 返回被置为非活跃的行，已失效或不存在时返回 nil
	DeactivateByToken(ctx context.Context, sessionToken string) (*Session, error)
	// DeactivateAll 在一个事务内完成，返回被置为非活跃的会话令牌
	DeactivateAll(ctx context.Context, userID string) ([]string, error)
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
