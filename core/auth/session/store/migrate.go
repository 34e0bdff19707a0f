// Package store 基于 gorm 的用户与会话存储
package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/kochabx/passport/core/auth/session"
)

// AutoMigrate 创建 users 与 user_sessions 表
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(&session.User{}, &session.Session{})
}
