// Package cache 基于 redis 的会话缓存与用户锁
package cache

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kochabx/passport/core/auth/session"
	pr "github.com/kochabx/passport/store/redis"
)

const defaultPrefix = "passport"

//go:embed lua/index.lua
var indexScript string

// Redis 会话缓存。
//
//	<prefix>:session:<token>  -> {"user_id","username"}
//	<prefix>:user:<userID>    -> set of token
type Redis struct {
	client redis.UniversalClient
	prefix string
}

var _ session.Cache = (*Redis)(nil)

// Option 缓存选项
type Option func(*Redis)

// WithPrefix 设置 key 前缀
func WithPrefix(prefix string) Option {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// New 创建会话缓存
func New(client *pr.Client, opts ...Option) *Redis {
	r := &Redis{
		client: client.UniversalClient(),
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) sessionKey(token string) string {
	return r.prefix + ":session:" + token
}

func (r *Redis) userKey(userID string) string {
	return r.prefix + ":user:" + userID
}

// Set 写入会话并加入用户索引，索引的过期时间不短于其中最新的会话
func (r *Redis) Set(ctx context.Context, token string, id session.Identity, ttl time.Duration) error {
	if ttl <= 0 {
		return session.ErrInvalidTTL
	}

	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("cache: marshal identity: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.sessionKey(token), data, ttl)
	pipe.Eval(ctx, indexScript, []string{r.userKey(id.UserID)}, token, max(ttl.Milliseconds(), 1))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: set session: %w", err)
	}
	return nil
}

// Get 未命中返回 session.ErrCacheMiss
func (r *Redis) Get(ctx context.Context, token string) (session.Identity, error) {
	var id session.Identity

	data, err := r.client.Get(ctx, r.sessionKey(token)).Bytes()
	if errors.Is(err, pr.ErrNil) {
		return id, session.ErrCacheMiss
	}
	if err != nil {
		return id, fmt.Errorf("cache: get session: %w", err)
	}

	if err := json.Unmarshal(data, &id); err != nil {
		return id, fmt.Errorf("cache: unmarshal identity: %w", err)
	}
	return id, nil
}

// Delete 删除会话并从所属用户的索引中移除。
// 会话 key 分布在不同的 slot 上，集群模式下只能逐 key 下发，用 pipeline 合并往返
func (r *Redis) Delete(ctx context.Context, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}

	gets := make([]*redis.StringCmd, len(tokens))
	pipe := r.client.Pipeline()
	for i, t := range tokens {
		gets[i] = pipe.Get(ctx, r.sessionKey(t))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, pr.ErrNil) {
		return fmt.Errorf("cache: load sessions: %w", err)
	}

	pipe = r.client.Pipeline()
	for i, t := range tokens {
		pipe.Del(ctx, r.sessionKey(t))

		raw, err := gets[i].Bytes()
		if err != nil {
			continue
		}
		var id session.Identity
		if json.Unmarshal(raw, &id) == nil && id.UserID != "" {
			pipe.SRem(ctx, r.userKey(id.UserID), t)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: delete sessions: %w", err)
	}
	return nil
}

// DeleteUser 删除用户索引中的全部会话以及索引本身
func (r *Redis) DeleteUser(ctx context.Context, userID string) error {
	userKey := r.userKey(userID)

	tokens, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("cache: list user sessions: %w", err)
	}

	pipe := r.client.Pipeline()
	for _, t := range tokens {
		pipe.Del(ctx, r.sessionKey(t))
	}
	// 索引最后删除，中途失败时剩余会话仍可通过索引找到
	pipe.Del(ctx, userKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: delete user sessions: %w", err)
	}
	return nil
}
