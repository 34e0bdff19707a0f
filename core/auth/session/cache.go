package session

import (
	"context"
	"time"
)

// Cache 会话令牌到身份的易失映射，仅用于加速，不是可信来源
type Cache interface {
	// Set ttl 必须为正
	Set(ctx context.Context, sessionToken string, id Identity, ttl time.Duration) error
	// Get 未命中返回 ErrCacheMiss
	Get(ctx context.Context, sessionToken string) (Identity, error)
	// Delete 不存在的 key 不视为错误
	Delete(ctx context.Context, sessionTokens ...string) error
	// DeleteUser 删除用户索引中的全部会话
	DeleteUser(ctx context.Context, userID string) error
}

// Locker 用户级分布式锁
type Locker interface {
	// Lock 在 ctx 截止前拿不到锁时返回 ErrLockNotAcquired
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, err error)
}

// NoopCache 没有缓存时使用，Get 总是未命中
type NoopCache struct{}

var _ Cache = NoopCache{}

func (NoopCache) Set(ctx context.Context, sessionToken string, id Identity, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}

func (NoopCache) Get(context.Context, string) (Identity, error) {
	return Identity{}, ErrCacheMiss
}

func (NoopCache) Delete(context.Context, ...string) error { return nil }

func (NoopCache) DeleteUser(context.Context, string) error { return nil }
