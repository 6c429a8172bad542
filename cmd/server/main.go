package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/program-planner/internal/config"
	"github.com/iliyamo/program-planner/internal/database"
	"github.com/iliyamo/program-planner/internal/handler"
	"github.com/iliyamo/program-planner/internal/middleware"
	"github.com/iliyamo/program-planner/internal/queue"
	"github.com/iliyamo/program-planner/internal/repository"
	"github.com/iliyamo/program-planner/internal/router"
	"github.com/iliyamo/program-planner/internal/service"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := config.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(cfg); err != nil {
			logger.Fatal("migrate failed", zap.Error(err))
		}
	}
	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("db connect failed", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional: rate limiting and the shared view cache pass
	// through without it.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	cache := middleware.NewResponseCache(cacheCfg, rdb, logger)

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithInvalidator(router.SharedViewCache{Cache: cache, Repurge: cacheCfg.RepurgeDelay, Log: logger}),
		service.WithMaxTokenAttempts(cfg.ShareTokenMaxAttempts),
	}
	if cfg.Queue.Enabled {
		opts = append(opts, service.WithPublisher(queue.NewPublisher(cfg.Queue.URL, logger)))
	}
	if cfg.Queue.ConsumerEnabled {
		consumer := &queue.SharingConsumer{URL: cfg.Queue.URL, LogPath: cfg.Queue.LogPath, Log: logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("sharing consumer stopped", zap.Error(err))
			}
		}()
	}
	svc := service.NewProgramService(repository.NewStore(db), opts...)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e,
		handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), logger),
		cfg.JWTSecret)
	router.RegisterPrograms(e,
		handler.NewProgramHandler(svc, logger),
		handler.NewItemHandler(svc, logger),
		cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(svc, logger), cache)

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("driver", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
