// Package janitor 定期将已过期但仍标记为活跃的会话置为非活跃，
// 避免它们继续占用会话上限
package janitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kochabx/passport/core/tag"
	"github.com/kochabx/passport/log"
	"github.com/kochabx/passport/transport"
)

// Config 清理任务配置
type Config struct {
	Enabled bool          `json:"enabled" mapstructure:"enabled" default:"true"`
	Spec    string        `json:"spec" mapstructure:"spec" default:"@every 10m"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" default:"30s"`
}

// ApplyDefaults 应用默认值
func (c *Config) ApplyDefaults() error {
	return tag.ApplyDefaults(c)
}

// Store 清理所需的存储能力
type Store interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Janitor 以 cron 调度清理任务，实现 transport.Server 以便随应用启停
type Janitor struct {
	cfg    Config
	store  Store
	cron   *cron.Cron
	logger *log.Logger
	now    func() time.Time

	done chan struct{}
	once sync.Once
}

var _ transport.Server = (*Janitor)(nil)

// Option Janitor 选项
type Option func(*Janitor)

func WithLogger(logger *log.Logger) Option {
	return func(j *Janitor) {
		j.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(j *Janitor) {
		j.now = now
	}
}

// New 创建清理任务，Spec 非法时返回错误
func New(cfg Config, store Store, opts ...Option) (*Janitor, error) {
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}

	j := &Janitor{
		cfg:    cfg,
		store:  store,
		logger: log.G,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(j)
	}

	cl := cronLogger{j.logger}
	j.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := j.cron.AddFunc(cfg.Spec, j.tick); err != nil {
		return nil, fmt.Errorf("janitor: invalid spec %q: %w", cfg.Spec, err)
	}
	return j, nil
}

func (j *Janitor) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
	defer cancel()
	_, _ = j.RunOnce(ctx)
}

// RunOnce 立即执行一次清理
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	n, err := j.store.DeactivateExpired(ctx, j.now())
	if err != nil {
		j.logger.Error().Err(err).Msg("deactivate expired sessions failed")
		return 0, err
	}
	if n > 0 {
		j.logger.Info().Int64("count", n).Msg("expired sessions deactivated")
	}
	return n, nil
}

// Run 启动调度并阻塞到 Shutdown
func (j *Janitor) Run() error {
	j.logger.Info().Str("spec", j.cfg.Spec).Msg("session janitor started")
	j.cron.Start()
	<-j.done
	return nil
}

// Shutdown 停止调度并等待正在执行的任务
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.once.Do(func() { close(j.done) })

	stopped := j.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger 将 cron 的日志接入 zerolog
type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, kv ...any) {
	c.l.Debug().Fields(kv).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error().Err(err).Fields(kv).Msg(msg)
}
