package cache

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kochabx/passport/core/auth/session"
	pr "github.com/kochabx/passport/store/redis"
)

//go:embed lua/release.lua
var releaseScript string

const defaultRetryInterval = 20 * time.Millisecond

// Locker SET NX PX 实现的用户锁，只有持有者能释放
type Locker struct {
	client        redis.UniversalClient
	prefix        string
	retryInterval time.Duration
	release       *redis.Script
}

var _ session.Locker = (*Locker)(nil)

// NewLocker 创建用户锁
func NewLocker(client *pr.Client, opts ...Option) *Locker {
	r := &Redis{prefix: defaultPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return &Locker{
		client:        client.UniversalClient(),
		prefix:        r.prefix,
		retryInterval: defaultRetryInterval,
		release:       redis.NewScript(releaseScript),
	}
}

// Lock 在 ctx 截止前反复尝试获取锁
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lockKey := l.prefix + ":lock:" + key
	owner := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, owner, ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("cache: acquire lock: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				return l.release.Run(ctx, l.client, []string{lockKey}, owner).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, session.ErrLockNotAcquired
		case <-ticker.C:
		}
	}
}
