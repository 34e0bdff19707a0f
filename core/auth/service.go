// Package auth 认证服务：注册、登录、刷新、登出与账户操作
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kochabx/passport/core/auth/password"
	"github.com/kochabx/passport/core/auth/session"
	"github.com/kochabx/passport/core/auth/token"
	"github.com/kochabx/passport/core/util/desensitize"
	"github.com/kochabx/passport/core/validator"
	"github.com/kochabx/passport/errors"
	"github.com/kochabx/passport/log"
)

const defaultTimeout = 5 * time.Second

// Service 认证服务，返回的错误均属于本包定义的错误分类
type Service struct {
	users    session.UserStore
	sessions *session.Manager
	codec    *token.Codec
	hasher   *password.Hasher

	validate validator.Validator
	metrics  *Metrics
	logger   *log.Logger
	now      func() time.Time
	timeout  time.Duration

	// dummyHash 用户不存在时仍执行一次 bcrypt 比较，避免通过耗时区分
	dummyHash string
}

// New 创建认证服务
func New(users session.UserStore, sessions *session.Manager, codec *token.Codec, hasher *password.Hasher, opts ...Option) (*Service, error) {
	s := &Service{
		users:    users,
		sessions: sessions,
		codec:    codec,
		hasher:   hasher,
		validate: validator.Validate,
		logger:   log.G,
		now:      time.Now,
		timeout:  defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}
	s.dummyHash = dummy
	return s, nil
}

func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) done(op string, err error) error {
	err = translate(err)
	s.metrics.observe(op, err)
	return err
}

// Register 创建用户
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ *UserIdentity, err error) {
	defer func() { err = s.done("register", err) }()

	if err := s.validate.StructCtx(ctx, &in); err != nil {
		return nil, err
	}

	if err := s.checkAvailable(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &session.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: digest,
		IsActive:     true,
	}

	cctx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.users.Create(cctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Str("email", desensitize.Email(user.Email)).
		Msg("user registered")
	return toUserIdentity(user), nil
}

func (s *Service) checkAvailable(ctx context.Context, username, email string) error {
	cctx, cancel := s.opCtx(ctx)
	defer cancel()

	taken, err := s.users.ExistsUsername(cctx, username)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateUsername
	}

	taken, err = s.users.ExistsEmail(cctx, email)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateEmail
	}
	return nil
}

// Login 校验密码并创建会话
func (s *Service) Login(ctx context.Context, in LoginInput) (_ *session.TokenPair, err error) {
	defer func() { err = s.done("login", err) }()

	if err := s.validate.StructCtx(ctx, &in); err != nil {
		return nil, err
	}

	user, err := s.authenticate(ctx, in.Username, in.Password)
	if err != nil {
		return nil, err
	}

	pair, err := s.sessions.Create(ctx, user, in.IP, in.UserAgent, in.RememberMe)
	if err != nil {
		return nil, err
	}

	cctx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.users.UpdateLastLogin(cctx, user.ID, s.now()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("update last login failed")
	}

	s.logger.Info().Str("user_id", user.ID).Str("ip", in.IP).Msg("user logged in")
	return pair, nil
}

// authenticate 用户不存在与密码错误返回同一个错误
func (s *Service) authenticate(ctx context.Context, username, plaintext string) (*session.User, error) {
	cctx, cancel := s.opCtx(ctx)
	user, err := s.users.FindByUsername(cctx, username)
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, session.ErrUserNotFound):
		s.hasher.Verify(plaintext, s.dummyHash)
		return nil, ErrInvalidCredentials
	default:
		return nil, err
	}

	if !s.hasher.Verify(plaintext, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	return user, nil
}

// Refresh 轮换令牌
func (s *Service) Refresh(ctx context.Context, refreshToken string) (_ *session.TokenPair, err error) {
	defer func() { err = s.done("refresh", err) }()
	return s.sessions.Refresh(ctx, refreshToken)
}

// Logout 未知或已失效的令牌同样成功
func (s *Service) Logout(ctx context.Context, sessionToken string) (err error) {
	defer func() { err = s.done("logout", err) }()
	return s.sessions.Logout(ctx, sessionToken)
}

// LogoutAll 结束用户全部会话，幂等
func (s *Service) LogoutAll(ctx context.Context, userID string) (err error) {
	defer func() { err = s.done("logout_all", err) }()
	return s.sessions.LogoutAll(ctx, userID)
}

// VerifyAccessToken 只校验签名与有效期，不访问存储或缓存
func (s *Service) VerifyAccessToken(_ context.Context, bearer string) (*Identity, error) {
	claims, err := s.codec.Verify(bearer, token.KindAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: claims.UserID, Username: claims.Subject}, nil
}

// VerifySession 先查缓存，再确认用户仍处于活跃状态
func (s *Service) VerifySession(ctx context.Context, sessionToken string) (_ *UserIdentity, err error) {
	defer func() { err = s.done("verify_session", err) }()

	id, err := s.sessions.Verify(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	return s.activeUser(ctx, id.UserID)
}

// Me 返回当前用户
func (s *Service) Me(ctx context.Context, userID string) (_ *UserIdentity, err error) {
	defer func() { err = s.done("me", err) }()
	return s.activeUser(ctx, userID)
}

func (s *Service) activeUser(ctx context.Context, userID string) (*UserIdentity, error) {
	cctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.users.FindByID(cctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return toUserIdentity(user), nil
}

// ChangePassword 修改密码后结束全部会话
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) (err error) {
	defer func() { err = s.done("change_password", err) }()

	if err := s.validate.StructCtx(ctx, &passwordChange{Current: current, New: next}); err != nil {
		return err
	}

	cctx, cancel := s.opCtx(ctx)
	user, err := s.users.FindByID(cctx, userID)
	cancel()
	if err != nil {
		return err
	}
	if !user.IsActive {
		return ErrUserInactive
	}
	if !s.hasher.Verify(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	digest, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}

	cctx, cancel = s.opCtx(ctx)
	err = s.users.UpdatePassword(cctx, userID, digest)
	cancel()
	if err != nil {
		return err
	}

	s.logger.Info().Str("user_id", userID).Msg("password changed")
	return s.sessions.LogoutAll(ctx, userID)
}

// UpdateProfile 修改姓名或邮箱
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (_ *UserIdentity, err error) {
	defer func() { err = s.done("update_profile", err) }()

	if err := s.validate.StructCtx(ctx, &in); err != nil {
		return nil, err
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Email != "" && in.Email != user.Email {
		cctx, cancel := s.opCtx(ctx)
		taken, err := s.users.ExistsEmail(cctx, in.Email)
		cancel()
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateEmail
		}
	}

	cctx, cancel := s.opCtx(ctx)
	err = s.users.UpdateProfile(cctx, userID, in.FullName, in.Email)
	cancel()
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("full_name", desensitize.Name(in.FullName)).
		Str("email", desensitize.Email(in.Email)).
		Msg("profile updated")
	return s.activeUser(ctx, userID)
}

// Deactivate 先停用账户再结束全部会话，停用后的登录与刷新都会被拒绝
func (s *Service) Deactivate(ctx context.Context, userID string) (err error) {
	defer func() { err = s.done("deactivate", err) }()

	cctx, cancel := s.opCtx(ctx)
	err = s.users.Deactivate(cctx, userID)
	cancel()
	if err != nil {
		return err
	}

	if err := s.sessions.LogoutAll(ctx, userID); err != nil {
		return err
	}

	s.logger.Info().Str("user_id", userID).Msg("user deactivated")
	return nil
}

func toUserIdentity(u *session.User) *UserIdentity {
	return &UserIdentity{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		LastLogin:  u.LastLogin,
	}
}
