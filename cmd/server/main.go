// Package main runs the room-sync server: WebSocket session coordination with
// an HTTP diagnostics surface and graceful shutdown.
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

	"github.com/streamroom/backend/config"
	"github.com/streamroom/backend/internal/auth"
	"github.com/streamroom/backend/internal/middleware"
	"github.com/streamroom/backend/internal/realtime"
	"github.com/streamroom/backend/internal/rooms"
	"github.com/streamroom/backend/internal/session"
	"github.com/streamroom/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	registry := session.NewRegistry(session.Options{
		Limits: session.Limits{
			MaxMessages:   cfg.Rooms.MaxChatHistory,
			MaxMessageLen: cfg.Rooms.MaxChatLength,
		},
		DestroyGrace: time.Duration(cfg.Rooms.DestroyGraceSeconds) * time.Second,
	}, logger)

	hub := realtime.NewHub(logger)
	router := realtime.NewRouter(registry, hub, realtime.RouterConfig{
		HostControlsPlayback: cfg.Rooms.HostControlsPlayback,
	}, logger)

	guard := realtime.NewIPGuard(realtime.LimitConfig{
		MessagePoints: cfg.RateLimit.MessagePoints,
		Window:        time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		MaxConnsPerIP: cfg.RateLimit.MaxConnsPerIP,
	})
	defer guard.Close()

	// Token verification happens before the upgrade, never under a session
	// lock.
	verify := func(token string) (realtime.Identity, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return realtime.Identity{}, err
		}
		return realtime.Identity{UserID: claims.UserID, Username: claims.Username}, nil
	}

	roomsHandler := rooms.NewHandler(registry, router, logger)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	engine.Use(middleware.Logger(logger))

	engine.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	if cfg.Auth.DevTokens {
		authHandler := auth.NewHandler(jwtService, logger)
		engine.POST("/auth/token", authHandler.MintToken)
		logger.Warn("dev token mint enabled; do not run this in production")
	}

	// WebSocket (token in query; no Authorization header on upgrades)
	engine.GET("/ws", realtime.ServeWs(router, guard, verify, logger))

	// Diagnostics (JWT required; listing and teardown are admin-only)
	api := engine.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/rooms", middleware.RequireRole("admin"), roomsHandler.List)
		api.GET("/rooms/:code", roomsHandler.Get)
		api.POST("/rooms/generate-code", roomsHandler.GenerateCode)
		api.DELETE("/rooms/:code", middleware.RequireRole("admin"), roomsHandler.Destroy)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
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
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
