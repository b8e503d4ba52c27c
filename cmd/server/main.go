package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yamdb/yamdb-api/internal/config"
	"github.com/yamdb/yamdb-api/internal/database"
	"github.com/yamdb/yamdb-api/internal/mailer"
	"github.com/yamdb/yamdb-api/internal/middleware"
	"github.com/yamdb/yamdb-api/internal/router"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log.Println("Config loaded successfully")

	if err := logger.Init(!cfg.IsProduction(), cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database.Connect(cfg)
	database.Migrate()

	mail, err := mailer.New(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize mailer", zap.Error(err))
	}
	defer mail.Close()

	limiter, closeLimiter := newAuthLimiter(cfg)
	defer closeLimiter()

	services := router.NewServices(database.DB, mail, cfg)
	engine := router.New(cfg, services, limiter)

	server := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting",
			zap.String("addr", cfg.ServerPort),
			zap.String("environment", cfg.Environment),
			zap.String("mail_transport", cfg.MailTransport),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Log.Info("Shutdown signal received")
	case err := <-errChan:
		logger.Log.Fatal("Server failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Log.Info("Server stopped")
}

// newAuthLimiter uses Redis when REDIS_URL is set and reachable, and an
// in-process limiter otherwise.
func newAuthLimiter(cfg *config.Config) (middleware.Limiter, func()) {
	limits := middleware.RateLimiterConfig{
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
		BlockTime:   cfg.RateLimitBlockTime,
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Log.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		client := redis.NewClient(opt)
		err = client.Ping(context.Background()).Err()
		if err == nil {
			logger.Log.Info("Rate limiter backed by Redis")
			return middleware.NewRedisRateLimiter(client, limits), func() { client.Close() }
		}
		logger.Log.Warn("Redis unreachable, using in-process rate limiter", zap.Error(err))
		client.Close()
	}

	return middleware.NewMemoryRateLimiter(limits), func() {}
}
