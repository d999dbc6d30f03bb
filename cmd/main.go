package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voucher-market/internal/auth"
	"voucher-market/internal/babsy"
	"voucher-market/internal/config"
	"voucher-market/internal/database"
	"voucher-market/internal/handlers"
	"voucher-market/internal/jobs"
	"voucher-market/internal/logging"
	"voucher-market/internal/mail"
	"voucher-market/internal/metrics"
	"voucher-market/internal/middleware"
	"voucher-market/internal/repository"
	"voucher-market/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.IsProduction(), cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := database.Open(cfg.GetDSN(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db, logger); err != nil {
		return err
	}
	seeded, err := database.SeedCategories(context.Background(), db)
	if err != nil {
		return err
	}
	if seeded > 0 {
		logger.Info("Seeded categories", zap.Int64("count", seeded))
	}

	tokens, err := auth.NewTokenManager(cfg.App.JWTSecret, cfg.App.SessionTTL)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = redisClient.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, rate limits fall back to memory", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		}
		cancel()
	}

	var sender mail.Sender
	if cfg.SMTP.Host != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		if cfg.IsProduction() {
			logger.Warn("SMTP_HOST not set, emails are only logged")
		}
		sender = mail.NewLogSender(logger)
	}

	m := metrics.New()
	repo := repository.NewRepository(db)

	otpService := services.NewOTPService(repo, sender, services.OTPConfig{
		Expiry:          cfg.OTP.Expiry,
		ResendInterval:  cfg.OTP.ResendInterval,
		DeliveryTimeout: cfg.OTP.DeliveryTimeout,
		BlockedDomains:  cfg.OTP.BlockedDomains,
	}, m, logger)
	babsyClient := babsy.NewClient(cfg.Babsy.APIURL, cfg.Babsy.APIKey, cfg.Babsy.Timeout)
	authService := services.NewAuthService(repo, babsyClient, logger)
	userService := services.NewUserService(repo)
	voucherService := services.NewVoucherService(repo, cfg.App.URL, logger)
	redemptionService := services.NewRedemptionService(repo, m, logger)
	partnerService := services.NewPartnerService(repo, sender, cfg.App.URL, logger)
	categoryService := services.NewCategoryService(repo)

	routes := &handlers.Routes{
		Auth:       handlers.NewAuthHandler(otpService, authService, userService, tokens, cfg.App.SecureCookie, logger),
		Vouchers:   handlers.NewVoucherHandler(voucherService, redemptionService, logger),
		Partners:   handlers.NewPartnerHandler(partnerService, logger),
		Categories: handlers.NewCategoryHandler(categoryService, logger),
		Admin:      handlers.NewAdminHandler(partnerService, logger),
		Tokens:     tokens,
		AuthLimiter: middleware.NewRateLimiter(middleware.RateLimitConfig{
			Name:     "auth",
			Requests: cfg.Server.AuthRateLimit,
			Window:   time.Minute,
		}, redisClient, logger),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(logger), middleware.AccessLog(logger), m.Middleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "ok"
		if err := repo.Ping(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "unavailable"
		}
		c.JSON(status, gin.H{
			"status":   dbStatus,
			"database": dbStatus,
			"time":     time.Now().UTC().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	routes.Register(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return jobs.NewOTPCleanupJob(otpService, cfg.Jobs.OTPCleanupInterval, logger).Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server exited")
	return nil
}
