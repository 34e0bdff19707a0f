package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kochabx/passport/core/auth/session"
)

// Sessions 会话存储。所有置为非活跃的写操作都带 is_active = true 条件，
// 不存在把 is_active 写回 true 的路径
type Sessions struct {
	db *gorm.DB
}

var _ session.SessionStore = (*Sessions)(nil)

func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

func (s *Sessions) active(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&session.Session{}).Where("is_active = ?", true)
}

func (s *Sessions) Create(ctx context.Context, sess *session.Session) error {
	sess.ExpiresAt = sess.ExpiresAt.UTC()
	sess.CreatedAt = sess.CreatedAt.UTC()
	sess.LastActivity = sess.LastActivity.UTC()
	return s.db.WithContext(ctx).Create(sess).Error
}

func (s *Sessions) ListActive(ctx context.Context, userID string) ([]session.Session, error) {
	var out []session.Session
	err := s.active(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&out).Error
	return out, err
}

func (s *Sessions) FindByRefreshToken(ctx context.Context, refreshToken string, now time.Time) (*session.Session, error) {
	var sess session.Session
	err := s.active(ctx).
		Where("refresh_token = ? AND expires_at > ?", refreshToken, now.UTC()).
		First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Sessions) FindByToken(ctx context.Context, sessionToken string) (*session.Session, error) {
	var sess session.Session
	err := s.db.WithContext(ctx).Where("session_token = ?", sessionToken).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Sessions) UpdateRefreshToken(ctx context.Context, id uint64, refreshToken string, at time.Time) error {
	res := s.active(ctx).Where("id = ?", id).Updates(map[string]any{
		"refresh_token": refreshToken,
		"last_activity": at.UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

func (s *Sessions) Touch(ctx context.Context, sessionToken string, at time.Time) error {
	return s.active(ctx).Where("session_token = ?", sessionToken).Update("last_activity", at.UTC()).Error
}

func (s *Sessions) Deactivate(ctx context.Context, ids ...uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.active(ctx).Where("id IN ?", ids).Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (s *Sessions) DeactivateByToken(ctx context.Context, sessionToken string) (*session.Session, error) {
	var flipped *session.Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess session.Session
		err := tx.Where("session_token = ? AND is_active = ?", sessionToken, true).First(&sess).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		res := tx.Model(&session.Session{}).
			Where("id = ? AND is_active = ?", sess.ID, true).
			Update("is_active", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			sess.IsActive = false
			flipped = &sess
		}
		return nil
	})
	return flipped, err
}

// DeactivateAll 读取与更新在同一事务内，要么全部成功要么全部回滚
func (s *Sessions) DeactivateAll(ctx context.Context, userID string) ([]string, error) {
	var tokens []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&session.Session{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Pluck("session_token", &tokens).Error; err != nil {
			return err
		}
		if len(tokens) == 0 {
			return nil
		}
		return tx.Model(&session.Session{}).
			Where("user_id = ? AND is_active = ? AND session_token IN ?", userID, true, tokens).
			Update("is_active", false).Error
	})
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (s *Sessions) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.active(ctx).Where("expires_at <= ?", now.UTC()).Update("is_active", false)
	return res.RowsAffected, res.Error
}
