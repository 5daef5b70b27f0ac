package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"linkhub/internal/config"
	"linkhub/internal/db"
	apihttp "linkhub/internal/http"
	"linkhub/internal/provider"
	"linkhub/internal/repository"
	"linkhub/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	accountRepo := repository.NewPgLinkedAccountRepository(pool)

	var (
		sessionStore service.SessionStore
		loginLimiter service.LoginRateLimiter
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			sessionStore = service.NewRedisSessionStore(redisClient)
			if cfg.LoginRateMax > 0 {
				loginLimiter = service.NewRedisLoginRateLimiter(redisClient, time.Duration(cfg.LoginRateWindow)*time.Second, cfg.LoginRateMax)
			}
		}
		cancel()
	}
	if loginLimiter == nil && cfg.LoginRateMax > 0 {
		loginLimiter = service.NewLoginRateLimiter(time.Duration(cfg.LoginRateWindow)*time.Second, cfg.LoginRateMax)
	}

	sessionSvc := service.NewSessionService(cfg.JWTSecret, time.Duration(cfg.SessionTTLMinutes)*time.Minute, sessionStore)
	authSvc := service.NewAuthService(logger, userRepo, sessionSvc, loginLimiter)

	gateway := provider.NewUnipileClient(cfg.UnipileAPIURL, cfg.UnipileAPIKey, time.Duration(cfg.UnipileTimeoutSec)*time.Second, logger)
	if cfg.UnipileAPIKey == "" {
		logger.Warn("unipile api key not configured")
	}
	linkSvc := service.NewLinkService(logger, gateway, accountRepo)

	authHandler := apihttp.NewAuthHandler(logger, authSvc, sessionSvc)
	linkHandler := apihttp.NewLinkHandler(logger, linkSvc)
	accountsHandler := apihttp.NewAccountsHandler(logger, linkSvc)
	router := apihttp.NewRouter(logger, cfg.FrontendURL, sessionSvc, authHandler, linkHandler, accountsHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
