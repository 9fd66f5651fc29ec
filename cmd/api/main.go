package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/app"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	service := pflag.String("service", cfg.App.Service, "services to expose: identity, tickets or all")
	addr := pflag.String("addr", cfg.App.Addr(), "HTTP listen address")
	pflag.Parse()
	cfg.App.Service = *service

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	switch cfg.App.Service {
	case config.ServiceIdentity, config.ServiceTickets, config.ServiceAll:
	default:
		logger.Fatal("invalid --service", zap.String("service", cfg.App.Service))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	repos := app.MemoryRepositories(memory.NewStore())
	if pg.Enabled() {
		repos = app.PostgresRepositories(pg.PoolHandle())
	}

	server, err := app.New(app.Options{
		Config:   cfg,
		Logger:   logger,
		Metrics:  observability.NewMetrics(),
		Repos:    repos,
		Postgres: pg,
		Redis:    redis,
	})
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}

	go func() {
		if err := server.Listen(*addr); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := server.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
