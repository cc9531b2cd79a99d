// Command feedwise runs the users/posts API behind its Redis page cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feedwise/feedwise/api"
	"github.com/feedwise/feedwise/cache/redis"
	"github.com/feedwise/feedwise/config"
	"github.com/feedwise/feedwise/db/sql/postgres"
	"github.com/feedwise/feedwise/feed"
	"github.com/feedwise/feedwise/httpx"
	promstats "github.com/feedwise/feedwise/internal/stats/prometheus"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "feedwise:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := buildLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(
		postgres.WithDSN(cfg.Database.DSN),
		postgres.WithMaxOpenConns(cfg.Database.MaxOpenConns),
		postgres.WithMaxIdleConns(cfg.Database.MaxIdleConns),
	)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	if err := postgres.ApplyMigrations(ctx, db, postgres.Schema()...); err != nil {
		return err
	}

	cacheStore := redis.NewStore(redis.Options{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	defer func() {
		_ = cacheStore.Close()
	}()

	svc := feed.NewService(
		postgres.NewUserRepository(db),
		postgres.NewPostRepository(db),
		cacheStore,
		feed.WithTTL(cfg.Cache.TTL()),
		feed.WithLogger(logger),
		feed.WithStats(promstats.New(nil)),
	)

	server := httpx.NewServer(
		httpx.WithAddress(cfg.Server.Address),
		httpx.WithTimeouts(cfg.Server.ReadTimeout(), cfg.Server.WriteTimeout()),
	)
	server.RegisterRoutes(func(a *httpx.App) {
		api.RegisterRoutes(a, api.NewHandlers(svc))
		a.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	})

	logger.Info("starting server",
		zap.String("address", cfg.Server.Address),
		zap.Duration("cache_ttl", cfg.Cache.TTL()),
	)
	return server.Start(ctx)
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
