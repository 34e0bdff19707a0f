package session

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

// memStore 同时实现 UserStore 与 SessionStore
type memStore struct {
	mu       sync.Mutex
	users    map[string]*User
	sessions []*Session
	nextID   uint64
	failNext error
	touched  map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*User{}, touched: map[string]time.Time{}}
}

func (s *memStore) fail() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *memStore) addUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *memStore) Create(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return err
	}
	s.nextID++
	sess.ID = s.nextID
	cp := *sess
	s.sessions = append(s.sessions, &cp)
	return nil
}

func (s *memStore) ListActive(_ context.Context, userID string) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	var out []Session
	for _, v := range s.sessions {
		if v.UserID == userID && v.IsActive {
			out = append(out, *v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *memStore) FindByRefreshToken(_ context.Context, token string, now time.Time) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.sessions {
		if v.RefreshToken == token && v.IsActive && v.ExpiresAt.After(now) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (s *memStore) FindByToken(_ context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.sessions {
		if v.SessionToken == token {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (s *memStore) UpdateRefreshToken(_ context.Context, id uint64, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.sessions {
		if v.ID == id && v.IsActive {
			v.RefreshToken = token
			v.LastActivity = at
			return nil
		}
	}
	return ErrSessionNotFound
}

func (s *memStore) Touch(_ context.Context, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched[token] = at
	return nil
}

func (s *memStore) Deactivate(_ context.Context, ids ...uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, v := range s.sessions {
		if v.IsActive && slices.Contains(ids, v.ID) {
			v.IsActive = false
			n++
		}
	}
	return n, nil
}

func (s *memStore) DeactivateByToken(_ context.Context, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	for _, v := range s.sessions {
		if v.SessionToken == token && v.IsActive {
			v.IsActive = false
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) DeactivateAll(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(); err != nil {
		return nil, err
	}
	var tokens []string
	for _, v := range s.sessions {
		if v.UserID == userID && v.IsActive {
			v.IsActive = false
			tokens = append(tokens, v.SessionToken)
		}
	}
	return tokens, nil
}

func (s *memStore) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, v := range s.sessions {
		if v.IsActive && !v.ExpiresAt.After(now) {
			v.IsActive = false
			n++
		}
	}
	return n, nil
}

func (s *memStore) active(userID string) []Session {
	out, _ := s.ListActive(context.Background(), userID)
	return out
}

func (s *memStore) byToken(token string) *Session {
	v, _ := s.FindByToken(context.Background(), token)
	return v
}

// memUsers 与 memStore 共享数据，避免与 SessionStore 的同名方法冲突
type memUsers struct{ s *memStore }

func (u memUsers) Create(_ context.Context, user *User) error {
	u.s.addUser(user)
	return nil
}

func (u memUsers) FindByID(_ context.Context, id string) (*User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	v, ok := u.s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *v
	return &cp, nil
}

func (u memUsers) FindByUsername(_ context.Context, username string) (*User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, v := range u.s.users {
		if v.Username == username {
			cp := *v
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (u memUsers) ExistsUsername(ctx context.Context, username string) (bool, error) {
	_, err := u.FindByUsername(ctx, username)
	return err == nil, nil
}

func (u memUsers) ExistsEmail(context.Context, string) (bool, error) { return false, nil }

func (u memUsers) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

func (u memUsers) UpdatePassword(context.Context, string, string) error { return nil }

func (u memUsers) UpdateProfile(context.Context, string, string, string) error { return nil }

func (u memUsers) Deactivate(_ context.Context, id string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if v, ok := u.s.users[id]; ok {
		v.IsActive = false
	}
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]Identity
	ttls    map[string]time.Duration
	setErr  error
	delErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]Identity{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Set(_ context.Context, token string, id Identity, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[token] = id
	c.ttls[token] = ttl
	return nil
}

func (c *memCache) Get(_ context.Context, token string) (Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.entries[token]
	if !ok {
		return Identity{}, ErrCacheMiss
	}
	return id, nil
}

func (c *memCache) Delete(_ context.Context, tokens ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delErr != nil {
		return c.delErr
	}
	for _, t := range tokens {
		delete(c.entries, t)
	}
	return nil
}

func (c *memCache) DeleteUser(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for t, id := range c.entries {
		if id.UserID == userID {
			delete(c.entries, t)
		}
	}
	return nil
}

func (c *memCache) has(token string) bool {
	_, err := c.Get(context.Background(), token)
	return err == nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
	ttl  time.Duration
}

func (l *fakeLocker) Lock(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ttl = ttl
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, ErrLockNotAcquired
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}

var errStoreDown = errors.New("store down")
