package rate

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	//go:embed slidingwindow.lua
	slidingWindowLua       string
	slidingWindowLuaScript = redis.NewScript(slidingWindowLua)
)

// SlidingWindow 滑动窗口限流，窗口内的每次请求记为 zset 的一个成员
type SlidingWindow struct {
	client redis.UniversalClient
	cfg    Config
	now    func() time.Time
}

var _ Limiter = (*SlidingWindow)(nil)

func NewSlidingWindow(client redis.UniversalClient, cfg Config) (*SlidingWindow, error) {
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return &SlidingWindow{client: client, cfg: cfg, now: time.Now}, nil
}

func (l *SlidingWindow) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now().UnixMilli()
	res, err := slidingWindowLuaScript.Run(ctx, l.client,
		[]string{l.cfg.Prefix + ":" + key},
		now, l.cfg.Window.Milliseconds(), l.cfg.Limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate: %w", err)
	}
	if len(res) != 2 {
		return Result{}, fmt.Errorf("rate: unexpected script reply %v", res)
	}
	return Result{
		Allowed:    res[0] == 1,
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}, nil
}
