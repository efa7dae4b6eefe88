package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo_api/internal/config"
	"todo_api/internal/db"
	httpServer "todo_api/internal/http"
	"todo_api/internal/http/handlers"
	"todo_api/internal/http/middleware"
	"todo_api/internal/logger"
	"todo_api/internal/repository"
	"todo_api/internal/service"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := service.NewSessionTokens(cfg.JWTSecret)
	if err != nil {
		logger.Fatal("session tokens", "error", err)
	}

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	accounts := service.NewAccountService(
		repository.NewUserRepository(dbPool),
		service.NewPasswordHasher(cfg.BcryptCost),
		tokens,
	)
	h := handlers.NewHandler(
		repository.NewTaskRepository(dbPool),
		accounts,
		tokens,
		handlers.CookiePolicy(cfg.IsProduction()),
	)

	var limiter middleware.Counter
	if cfg.APIRateLimit > 0 || cfg.TaskWriteLimit > 0 {
		limiter = middleware.NewMemoryCounter()
		if cfg.RedisAddr != "" {
			rdb, err := middleware.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				logger.Warn("redis unavailable, using in-memory rate limits", "error", err)
			} else {
				defer rdb.Close()
				limiter = middleware.NewRedisCounter(rdb)
			}
		}
	}

	r := httpServer.NewRouter(httpServer.RouterConfig{
		Handler:         h,
		Health:          handlers.NewHealthHandler(dbPool, version),
		Tokens:          tokens,
		Logger:          logger.Get(),
		AllowedOrigin:   cfg.FrontendURL,
		Limiter:         limiter,
		APIRateLimit:    cfg.APIRateLimit,
		APIRateWindow:   cfg.APIRateWindow,
		TaskWriteLimit:  cfg.TaskWriteLimit,
		TaskWriteWindow: cfg.TaskWriteWindow,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
