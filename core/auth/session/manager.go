package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kochabx/passport/core/auth/event"
	"github.com/kochabx/passport/core/auth/token"
	"github.com/kochabx/passport/log"
)

const (
	sessionTokenBytes = 32
	// lockedSteps 持锁期间串行的存储与缓存调用数：查询活跃会话、停用、删缓存、持久化、写缓存
	lockedSteps = 5
)

// Deps Manager 依赖的外部组件
type Deps struct {
	Codec    *token.Codec
	Sessions SessionStore
	Users    UserStore
	Cache    Cache
}

// Manager 负责登录、刷新、登出与淘汰，并维持存储与缓存的一致性。
// 除连接与协程池外不持有任何跨请求状态
type Manager struct {
	cfg        Config
	accessTTL  time.Duration
	refreshTTL time.Duration

	codec    *token.Codec
	sessions SessionStore
	users    UserStore
	cache    Cache

	locker    Locker
	publisher event.Publisher
	pool      *ants.Pool
	logger    *log.Logger
	now       func() time.Time
}

// NewManager 创建会话管理器
func NewManager(cfg Config, ttl token.Config, deps Deps, opts ...Option) (*Manager, error) {
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	if deps.Codec == nil || deps.Sessions == nil || deps.Users == nil {
		return nil, errors.New("session: codec, session store and user store are required")
	}
	if cfg.MaxPerUser < 1 {
		return nil, fmt.Errorf("session: max_per_user must be at least 1, got %d", cfg.MaxPerUser)
	}
	if cfg.OperationTimeout <= 0 {
		return nil, fmt.Errorf("session: invalid operation timeout %s", cfg.OperationTimeout)
	}
	if ttl.AccessTTL <= 0 || ttl.RefreshTTL <= 0 {
		return nil, fmt.Errorf("session: invalid token lifetimes %s/%s", ttl.AccessTTL, ttl.RefreshTTL)
	}

	m := &Manager{
		cfg:        cfg,
		accessTTL:  ttl.AccessTTL,
		refreshTTL: ttl.RefreshTTL,
		codec:      deps.Codec,
		sessions:   deps.Sessions,
		users:      deps.Users,
		cache:      deps.Cache,
		publisher:  event.Noop{},
		logger:     log.G,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache = NoopCache{}
	}
	if cfg.HardCap && m.locker == nil {
		return nil, errors.New("session: hard cap requires a locker")
	}

	pool, err := ants.NewPool(cfg.TouchPoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("session: create worker pool: %w", err)
	}
	m.pool = pool
	return m, nil
}

// Close 等待后台任务结束
func (m *Manager) Close() error {
	return m.pool.ReleaseTimeout(m.cfg.OperationTimeout)
}

// AccessTTL 刷新后访问令牌的有效期
func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

func (m *Manager) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.cfg.OperationTimeout)
}

// Create 为用户创建新会话，必要时按创建顺序淘汰最旧的会话
func (m *Manager) Create(ctx context.Context, user *User, ip, userAgent string, rememberMe bool) (*TokenPair, error) {
	if m.cfg.HardCap {
		unlock, err := m.lock(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	evicted, err := m.evict(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	lifetime := m.accessTTL
	if rememberMe {
		lifetime = m.refreshTTL
	}

	sub := token.Subject{Username: user.Username, UserID: user.ID}
	access, err := m.codec.Issue(sub, token.KindAccess, lifetime)
	if err != nil {
		return nil, err
	}
	refresh, err := m.codec.Issue(sub, token.KindRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	sessionToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	s := &Session{
		SessionToken: sessionToken,
		UserID:       user.ID,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(lifetime),
		IPAddress:    ip,
		UserAgent:    userAgent,
		CreatedAt:    now,
		LastActivity: now,
		IsActive:     true,
	}

	sctx, cancel := m.opCtx(ctx)
	err = m.sessions.Create(sctx, s)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("session: persist: %w", err)
	}

	// 缓存写入失败不影响登录，会话仍可通过存储校验
	cctx, cancel := m.opCtx(ctx)
	if err := m.cache.Set(cctx, sessionToken, user.Identity(), lifetime); err != nil {
		m.logger.Warn().Err(err).Str("user_id", user.ID).Uint64("session_id", s.ID).Msg("session cache write failed")
	}
	cancel()

	events := make([]event.Event, 0, len(evicted)+1)
	for _, v := range evicted {
		events = append(events, event.Event{Type: event.TypeEvicted, UserID: user.ID, Username: user.Username, SessionID: v.ID, At: now})
	}
	events = append(events, event.Event{
		Type:      event.TypeLogin,
		UserID:    user.ID,
		Username:  user.Username,
		SessionID: s.ID,
		IP:        ip,
		UserAgent: userAgent,
		At:        now,
	})
	m.emit(events...)

	m.logger.Debug().Str("user_id", user.ID).Uint64("session_id", s.ID).Int("evicted", len(evicted)).Bool("remember_me", rememberMe).Msg("session created")

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(lifetime / time.Second),
		SessionToken: sessionToken,
	}, nil
}

// evict 保证新会话加入后活跃会话数不超过上限
func (m *Manager) evict(ctx context.Context, userID string) ([]Session, error) {
	lctx, cancel := m.opCtx(ctx)
	active, err := m.sessions.ListActive(lctx, userID)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("session: list active: %w", err)
	}
	if len(active) < m.cfg.MaxPerUser {
		return nil, nil
	}

	victims := active[m.cfg.MaxPerUser-1:]
	ids := make([]uint64, len(victims))
	tokens := make([]string, len(victims))
	for i, v := range victims {
		ids[i] = v.ID
		tokens[i] = v.SessionToken
	}

	dctx, cancel := m.opCtx(ctx)
	_, err = m.sessions.Deactivate(dctx, ids...)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("session: evict: %w", err)
	}

	cctx, cancel := m.opCtx(ctx)
	if err := m.cache.Delete(cctx, tokens...); err != nil {
		m.logger.Warn().Err(err).Str("user_id", userID).Int("count", len(tokens)).Msg("evicted session cache delete failed")
	}
	cancel()

	return victims, nil
}

// lockTTL 覆盖持锁期间每一步都用满超时的情况，锁不会在临界区内过期
func (m *Manager) lockTTL() time.Duration {
	return lockedSteps * m.cfg.OperationTimeout
}

func (m *Manager) lock(ctx context.Context, userID string) (func(), error) {
	lctx, cancel := m.opCtx(ctx)
	defer cancel()

	release, err := m.locker.Lock(lctx, lockKey(userID), m.lockTTL())
	if err != nil {
		if errors.Is(err, ErrLockNotAcquired) {
			return nil, ErrSessionBusy
		}
		return nil, fmt.Errorf("session: lock: %w", err)
	}

	return func() {
		uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.OperationTimeout)
		defer cancel()
		if err := release(uctx); err != nil {
			m.logger.Warn().Err(err).Str("user_id", userID).Msg("release session lock failed")
		}
	}, nil
}

func lockKey(userID string) string {
	return "user:" + userID
}

// Refresh 轮换刷新令牌，不延长会话的过期时间
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := m.codec.Verify(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, err
	}

	now := m.now()
	fctx, cancel := m.opCtx(ctx)
	s, err := m.sessions.FindByRefreshToken(fctx, refreshToken, now)
	cancel()
	if err != nil {
		return nil, err
	}
	if s.UserID != claims.UserID {
		return nil, ErrSessionNotFound
	}

	uctx, cancel := m.opCtx(ctx)
	user, err := m.users.FindByID(uctx, s.UserID)
	cancel()
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrUserInactive
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	sub := token.Subject{Username: user.Username, UserID: user.ID}
	access, err := m.codec.Issue(sub, token.KindAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.codec.Issue(sub, token.KindRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}

	rctx, cancel := m.opCtx(ctx)
	err = m.sessions.UpdateRefreshToken(rctx, s.ID, refresh, now)
	cancel()
	if err != nil {
		return nil, err
	}

	m.emit(event.Event{Type: event.TypeRefresh, UserID: user.ID, Username: user.Username, SessionID: s.ID, At: now})

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(m.accessTTL / time.Second),
		SessionToken: s.SessionToken,
	}, nil
}

// Logout 幂等，未知令牌同样成功
func (m *Manager) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return nil
	}

	dctx, cancel := m.opCtx(ctx)
	s, err := m.sessions.DeactivateByToken(dctx, sessionToken)
	cancel()
	if err != nil {
		return fmt.Errorf("session: deactivate: %w", err)
	}

	cctx, cancel := m.opCtx(ctx)
	err = m.cache.Delete(cctx, sessionToken)
	cancel()
	if err != nil {
		return fmt.Errorf("session: cache delete: %w", err)
	}

	if s != nil {
		m.emit(event.Event{Type: event.TypeLogout, UserID: s.UserID, SessionID: s.ID, At: m.now()})
	}
	return nil
}

// LogoutAll 结束用户的全部会话，没有活跃会话时同样成功
func (m *Manager) LogoutAll(ctx context.Context, userID string) error {
	dctx, cancel := m.opCtx(ctx)
	tokens, err := m.sessions.DeactivateAll(dctx, userID)
	cancel()
	if err != nil {
		return fmt.Errorf("session: deactivate all: %w", err)
	}

	cctx, cancel := m.opCtx(ctx)
	defer cancel()
	if err := m.cache.Delete(cctx, tokens...); err != nil {
		return fmt.Errorf("session: cache delete: %w", err)
	}
	if err := m.cache.DeleteUser(cctx, userID); err != nil {
		return fmt.Errorf("session: cache delete user: %w", err)
	}

	m.emit(event.Event{Type: event.TypeLogoutAll, UserID: userID, Count: len(tokens), At: m.now()})
	m.logger.Debug().Str("user_id", userID).Int("count", len(tokens)).Msg("all sessions logged out")
	return nil
}

// Verify 只查缓存，未命中即视为无会话。命中时异步刷新 last_activity
func (m *Manager) Verify(ctx context.Context, sessionToken string) (Identity, error) {
	if sessionToken == "" {
		return Identity{}, ErrSessionNotFound
	}

	cctx, cancel := m.opCtx(ctx)
	id, err := m.cache.Get(cctx, sessionToken)
	cancel()
	if errors.Is(err, ErrCacheMiss) {
		return Identity{}, ErrSessionNotFound
	}
	if err != nil {
		return Identity{}, fmt.Errorf("session: cache get: %w", err)
	}

	at := m.now()
	m.submit("touch", func() {
		tctx, cancel := context.WithTimeout(context.Background(), m.cfg.OperationTimeout)
		defer cancel()
		if err := m.sessions.Touch(tctx, sessionToken, at); err != nil {
			m.logger.Warn().Err(err).Str("user_id", id.UserID).Msg("session touch failed")
		}
	})
	return id, nil
}

func (m *Manager) emit(events ...event.Event) {
	m.submit("publish", func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.OperationTimeout)
		defer cancel()
		if err := m.publisher.Publish(ctx, events...); err != nil {
			m.logger.Warn().Err(err).Int("count", len(events)).Msg("publish session events failed")
		}
	})
}

// submit 协程池满时丢弃任务
func (m *Manager) submit(name string, task func()) {
	if err := m.pool.Submit(task); err != nil {
		m.logger.Debug().Err(err).Str("task", name).Msg("background task dropped")
	}
}

func newSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
