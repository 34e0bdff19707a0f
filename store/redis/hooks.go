package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kochabx/passport/log"
)

// commandHook 记录命令名与耗时，超过阈值按慢查询告警。
// 只记录命令名，参数里有会话令牌
type commandHook struct {
	logger *log.Logger
	slow   time.Duration // 0 不检测
}

func newCommandHook(logger *log.Logger, slow time.Duration) *commandHook {
	return &commandHook{logger: logger, slow: slow}
}

func (h *commandHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		ev := h.logger.Debug()
		if err != nil {
			ev = h.logger.Error().Err(err)
		}
		ev.Str("addr", addr).Dur("duration", time.Since(start)).Msg("redis dial")
		return conn, err
	}
}

func (h *commandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe([]string{cmd.FullName()}, time.Since(start), err)
		return err
	}
}

func (h *commandHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		names := make([]string, len(cmds))
		for i, cmd := range cmds {
			names[i] = cmd.FullName()
		}
		h.observe(names, time.Since(start), err)
		return err
	}
}

func (h *commandHook) observe(names []string, d time.Duration, err error) {
	switch {
	case h.slow > 0 && d > h.slow:
		h.logger.Warn().Strs("cmds", names).Dur("duration", d).Dur("threshold", h.slow).Msg("redis slow command")
	case err != nil && !errors.Is(err, redis.Nil):
		h.logger.Warn().Strs("cmds", names).Dur("duration", d).Err(err).Msg("redis command failed")
	default:
		h.logger.Debug().Strs("cmds", names).Dur("duration", d).Msg("redis command")
	}
}
