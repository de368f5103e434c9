// Package main runs the moltspaces HTTP server with WebSocket fan-out and
// graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/moltspaces/backend/config"
	"github.com/moltspaces/backend/internal/auth"
	"github.com/moltspaces/backend/internal/daily"
	"github.com/moltspaces/backend/internal/farcaster"
	"github.com/moltspaces/backend/internal/middleware"
	"github.com/moltspaces/backend/internal/participants"
	"github.com/moltspaces/backend/internal/realtime"
	"github.com/moltspaces/backend/internal/spaces"
	"github.com/moltspaces/backend/pkg/database"
	"github.com/moltspaces/backend/pkg/queue"
	"github.com/moltspaces/backend/pkg/redis"
	"github.com/moltspaces/backend/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// External collaborators
	dailyClient := daily.NewClient(cfg.Daily, logger)
	neynarClient := farcaster.NewClient(cfg.Neynar, logger)

	// Auth
	userRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(userRepo, neynarClient, jwtService, logger)

	// Session ledger
	spaceRepo := spaces.NewRepository(pool)
	spaceService := spaces.NewService(spaceRepo, dailyClient, hub, jobQueue, logger)
	var tokens spaces.TokenMinter
	if dailyClient.Configured() {
		tokens = dailyClient
	}
	spaceHandler := spaces.NewHandler(spaceService, tokens, logger)

	// Participant roster
	participantRepo := participants.NewRepository(pool)
	participantService := participants.NewService(participantRepo, spaceService, tokens, hub, logger)
	participantHandler := participants.NewHandler(participantService, userRepo, logger)

	jwtValidate := func(token string) (fid, username string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.Fid, claims.Username, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	router.POST("/auth/farcaster", authHandler.SignIn)

	// Public reads: directory, point lookups, historical rosters
	router.GET("/live-spaces", spaceHandler.ListLive)
	router.GET("/spaces/:host", spaceHandler.Get)
	router.GET("/spaces/:host/sessions/latest", spaceHandler.LatestSession)
	router.GET("/sessions/:sessionId/participants", participantHandler.History)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/spaces/:host/go-live", spaces.RequireHostOwner(), spaceHandler.GoLive)
		api.POST("/spaces/:host/end", spaces.RequireHostOwner(), spaceHandler.End)
		api.POST("/spaces/:host/join", participantHandler.Join)
		api.GET("/spaces/:host/token", spaceHandler.Token)
		api.POST("/participants/:id/leave", participantHandler.Leave)
		api.POST("/participants/:id/heartbeat", participantHandler.Heartbeat)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(logger, jwtValidate, spaceService, participantService, participantService))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := cfg.Build()
	return logger
}
