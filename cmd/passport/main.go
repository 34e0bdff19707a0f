// Command passport 启动认证服务
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/kochabx/passport/config"
	"github.com/kochabx/passport/log"
)

func main() {
	var (
		path        = flag.String("config", "config.yaml", "path of the settings file")
		migrateOnly = flag.Bool("migrate", false, "run schema migration and exit")
		watch       = flag.Bool("watch", true, "reload log level when the settings file changes")
	)
	flag.Parse()

	var settings *config.Settings
	settings, cfg, err := config.Load(filepath.Base(*path), []string{filepath.Dir(*path)},
		config.WithOnChange(func() {
			log.SetLevel(settings.Log.Level)
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Str("config", *path).Msg("load settings")
	}

	logger, err := log.FromConfig(settings.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("create logger")
	}
	log.SetGlobalLogger(logger)

	if *watch {
		if err := cfg.Watch(); err != nil {
			logger.Warn().Err(err).Msg("watch settings")
		}
	}

	ctx := context.Background()
	if *migrateOnly {
		if err := migrate(ctx, settings, logger); err != nil {
			logger.Error().Err(err).Msg("migrate")
			os.Exit(1)
		}
		logger.Info().Msg("schema migrated")
		return
	}

	a, _, err := newApp(ctx, settings, logger)
	if err != nil {
		logger.Error().Err(err).Msg("build application")
		_ = logger.Close()
		os.Exit(1)
	}
	if err := a.Start(); err != nil {
		logger.Error().Err(err).Msg("application stopped")
		os.Exit(1)
	}
}
