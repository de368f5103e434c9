// Package main runs the background worker: session finalize jobs and the
// presence expiry sweep.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/moltspaces/backend/config"
	"github.com/moltspaces/backend/internal/participants"
	"github.com/moltspaces/backend/internal/presence"
	"github.com/moltspaces/backend/internal/realtime"
	"github.com/moltspaces/backend/internal/spaces"
	"github.com/moltspaces/backend/internal/worker"
	"github.com/moltspaces/backend/pkg/database"
	"github.com/moltspaces/backend/pkg/queue"
	"github.com/moltspaces/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// The worker publishes roster updates through the same Redis bridge the
	// servers subscribe on, so swept participants fan out to live viewers.
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	spaceRepo := spaces.NewRepository(pool)
	spaceService := spaces.NewService(spaceRepo, nil, hub, nil, logger)

	participantRepo := participants.NewRepository(pool)
	participantService := participants.NewService(participantRepo, spaceService, nil, hub, logger)

	sweeper := presence.NewSweeper(
		participantService,
		time.Duration(cfg.Presence.HeartbeatTTLSec)*time.Second,
		time.Duration(cfg.Presence.SweepIntervalSec)*time.Second,
		logger,
	)
	processor := worker.NewSessionProcessor(spaceRepo, jobQueue, logger)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(runCtx)
	go processor.Run(runCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := cfg.Build()
	return logger
}
