package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kochabx/passport/api"
	"github.com/kochabx/passport/app"
	"github.com/kochabx/passport/config"
	"github.com/kochabx/passport/core/auth"
	"github.com/kochabx/passport/core/auth/event"
	"github.com/kochabx/passport/core/auth/password"
	"github.com/kochabx/passport/core/auth/session"
	"github.com/kochabx/passport/core/auth/session/cache"
	"github.com/kochabx/passport/core/auth/session/store"
	"github.com/kochabx/passport/core/auth/token"
	"github.com/kochabx/passport/core/janitor"
	"github.com/kochabx/passport/core/rate"
	"github.com/kochabx/passport/log"
	"github.com/kochabx/passport/store/db"
	"github.com/kochabx/passport/store/kafka"
	"github.com/kochabx/passport/store/redis"
	transport "github.com/kochabx/passport/transport/http"
	"github.com/kochabx/passport/transport/http/metrics"
)

func openDB(ctx context.Context, s *config.Settings, logger *log.Logger) (*db.Client, error) {
	driver, err := s.Database.DriverConfig()
	if err != nil {
		return nil, err
	}
	client, err := db.New(driver, db.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.AutoMigrate(ctx, client.DB()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return client, nil
}

func migrate(ctx context.Context, s *config.Settings, logger *log.Logger) error {
	client, err := openDB(ctx, s, logger)
	if err != nil {
		return err
	}
	return client.Close()
}

// newApp 按依赖顺序构建进程内的全部组件。关闭函数按注册逆序执行：
// 先停 worker 池与事件，再断开 redis 与数据库
func newApp(ctx context.Context, s *config.Settings, logger *log.Logger) (*app.Application, http.Handler, error) {
	closers := []app.Option{
		app.WithClose("logger", func(context.Context) error { return logger.Close() }, time.Second),
	}
	// 构建失败时释放已创建的资源
	var cleanup []func() error
	fail := func(err error) (*app.Application, http.Handler, error) {
		for i := len(cleanup) - 1; i >= 0; i-- {
			_ = cleanup[i]()
		}
		return nil, nil, err
	}

	database, err := openDB(ctx, s, logger)
	if err != nil {
		return fail(err)
	}
	cleanup = append(cleanup, database.Close)
	closers = append(closers, app.WithClose("database", func(context.Context) error { return database.Close() }, 0))

	rc, err := redis.New(&s.Redis, redis.WithLogger(logger))
	if err != nil {
		return fail(fmt.Errorf("connect redis: %w", err))
	}
	cleanup = append(cleanup, rc.Close)
	closers = append(closers, app.WithClose("redis", func(context.Context) error { return rc.Close() }, 0))

	codec, err := token.New(&s.Token)
	if err != nil {
		return fail(err)
	}
	hasher, err := password.New(s.Password)
	if err != nil {
		return fail(err)
	}

	users := store.NewUsers(database.DB())
	sessions := store.NewSessions(database.DB())

	mopts := []session.Option{session.WithLogger(logger)}
	if s.Session.HardCap {
		mopts = append(mopts, session.WithLocker(cache.NewLocker(rc)))
	}
	if s.Events.Enabled {
		kc, err := kafka.New(&s.Events.Kafka, kafka.WithLogger(logger))
		if err != nil {
			return fail(fmt.Errorf("kafka: %w", err))
		}
		cleanup = append(cleanup, kc.Close)
		closers = append(closers, app.WithClose("kafka", func(context.Context) error { return kc.Close() }, 0))

		w, err := kc.Producer(s.Events.Topic)
		if err != nil {
			return fail(err)
		}
		mopts = append(mopts, session.WithPublisher(event.NewKafka(w)))
	}

	manager, err := session.NewManager(s.Session, s.Token, session.Deps{
		Codec:    codec,
		Sessions: sessions,
		Users:    users,
		Cache:    cache.New(rc),
	}, mopts...)
	if err != nil {
		return fail(err)
	}
	cleanup = append(cleanup, manager.Close)
	closers = append(closers, app.WithClose("session-pool", func(context.Context) error { return manager.Close() }, 0))

	svc, err := auth.New(users, manager, codec, hasher,
		auth.WithLogger(logger),
		auth.WithMetrics(auth.NewMetrics(metrics.Prom.Registry())),
		auth.WithOperationTimeout(s.Session.OperationTimeout),
	)
	if err != nil {
		return fail(err)
	}

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	rcfg := api.RouterConfig{
		CORSOrigins:  s.Server.CORSOrigins,
		SkipLogPaths: []string{s.Server.Metrics.Path, s.Server.Health.Path},
		Logger:       logger,
	}
	if s.RateLimit.Enabled {
		limiter, err := rate.NewSlidingWindow(rc.UniversalClient(), s.RateLimit)
		if err != nil {
			return fail(err)
		}
		rcfg.Limiter = limiter
	}
	router := api.NewRouter(svc, rcfg)

	srv := transport.NewServer(s.Server, router,
		transport.WithLogger(logger),
		transport.WithHealthCheck("database", database.Ping),
		transport.WithHealthCheck("redis", rc.Ping),
	)

	opts := append(closers,
		app.WithServers(srv),
		app.WithShutdownTimeout(s.Server.ShutdownTimeout),
		app.WithLogger(logger),
	)
	if s.Janitor.Enabled {
		j, err := janitor.New(s.Janitor, sessions, janitor.WithLogger(logger))
		if err != nil {
			return fail(err)
		}
		opts = append(opts, app.WithServers(j))
	}

	return app.New(opts...), srv.Handler(), nil
}
