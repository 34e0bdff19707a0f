package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kochabx/passport/core/auth/session"
)

// Users 用户存储
type Users struct {
	db *gorm.DB
}

var _ session.UserStore = (*Users)(nil)

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (s *Users) Create(ctx context.Context, user *session.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return s.duplicate(ctx, user.Username, err)
	}
	return err
}

// duplicate 唯一约束冲突时确定是哪一列
func (s *Users) duplicate(ctx context.Context, username string, cause error) error {
	taken, err := s.ExistsUsername(ctx, username)
	if err != nil {
		return errors.Join(cause, err)
	}
	if taken {
		return session.ErrDuplicateUsername
	}
	return session.ErrDuplicateEmail
}

func (s *Users) FindByID(ctx context.Context, id string) (*session.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *Users) FindByUsername(ctx context.Context, username string) (*session.User, error) {
	return s.first(ctx, "username = ?", username)
}

func (s *Users) first(ctx context.Context, query string, args ...any) (*session.User, error) {
	var user session.User
	err := s.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Users) ExistsUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "username = ?", username)
}

func (s *Users) ExistsEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "email = ?", email)
}

func (s *Users) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&session.User{}).Where(query, args...).Limit(1).Count(&n).Error
	return n > 0, err
}

func (s *Users) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.update(ctx, id, map[string]any{"last_login": at.UTC()})
}

func (s *Users) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.update(ctx, id, map[string]any{"password_hash": passwordHash})
}

// UpdateProfile 空字段不修改
func (s *Users) UpdateProfile(ctx context.Context, id, fullName, email string) error {
	values := map[string]any{}
	if fullName != "" {
		values["full_name"] = fullName
	}
	if email != "" {
		values["email"] = email
	}
	if len(values) == 0 {
		_, err := s.FindByID(ctx, id)
		return err
	}

	err := s.update(ctx, id, values)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return session.ErrDuplicateEmail
	}
	return err
}

func (s *Users) Deactivate(ctx context.Context, id string) error {
	return s.update(ctx, id, map[string]any{"is_active": false})
}

func (s *Users) update(ctx context.Context, id string, values map[string]any) error {
	res := s.db.WithContext(ctx).Model(&session.User{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return session.ErrUserNotFound
	}
	return nil
}
