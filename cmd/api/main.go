package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"diecast-collector/internal/config"
	"diecast-collector/internal/db"
	"diecast-collector/internal/email"
	apihttp "diecast-collector/internal/http"
	"diecast-collector/internal/payment"
	"diecast-collector/internal/repository"
	"diecast-collector/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
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

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	tokenRepo := repository.NewPgTokenRepository(pool)
	subRepo := repository.NewPgSubscriptionRepository(pool)
	prefRepo := repository.NewPgPreferenceRepository(pool)
	carRepo := repository.NewPgCarRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		tokenLimiter service.RateLimiter
		tokenStore   service.RefreshTokenStore
		orderStore   service.PendingOrderStore
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			tokenLimiter = service.NewRedisRateLimiter(redisClient, 10*time.Minute, 3)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
			orderStore = service.NewRedisOrderStore(redisClient)
		}
		cancel()
	}
	if tokenLimiter == nil {
		tokenLimiter = service.NewRateLimiter(10*time.Minute, 3)
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		logger.Warn("razorpay credentials not configured")
	}
	gateway := payment.NewRazorpayClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)

	tokenTTL := time.Duration(cfg.VerificationTokenTTLHours) * time.Hour
	tokenSvc := service.NewTokenService(logger, tokenRepo, emailSender, tokenLimiter, cfg.BaseURL, tokenTTL)
	lifecycleSvc := service.NewLifecycleService(logger, userRepo, subRepo, tokenSvc, gateway, orderStore, cfg.SubscriptionAmount, cfg.SubscriptionDays)
	subSvc := service.NewSubscriptionService(logger, subRepo)
	prefSvc := service.NewPreferenceService(logger, prefRepo)
	carSvc := service.NewCarService(logger, carRepo)

	authHandler := apihttp.NewAuthHandler(logger, lifecycleSvc, jwtSvc)
	paymentHandler := apihttp.NewPaymentHandler(logger, lifecycleSvc, cfg.RazorpayKeyID)
	subHandler := apihttp.NewSubscriptionHandler(logger, subSvc)
	prefHandler := apihttp.NewPreferenceHandler(logger, prefSvc)
	carHandler := apihttp.NewCarHandler(logger, carSvc)
	router := apihttp.NewRouter(logger, jwtSvc, authHandler, paymentHandler, subHandler, prefHandler, carHandler)

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
