package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"auth-admin/internal/config"
	"auth-admin/internal/db"
	"auth-admin/internal/email"
	apihttp "auth-admin/internal/http"
	"auth-admin/internal/repository"
	"auth-admin/internal/security"
	"auth-admin/internal/service"
)

const pruneInterval = 15 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	redisClient := connectRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	signer, err := security.NewHMACSigner(cfg.AppKey)
	if err != nil {
		logger.Fatal("signer", zap.Error(err))
	}
	emailHasher := security.SHA1Hasher{}
	passwords := security.NewBcryptHasher(cfg.BcryptCost)
	links := service.NewLinkBuilder(signer, emailHasher, cfg.AppURL, cfg.VerifyLinkTTL(), cfg.ResetTokenTTL())

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPEnabled() {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	userRepo := repository.NewPgUserRepository(pool)
	tx := db.NewTransactor(pool)

	var (
		resetStore   service.ResetTokenStore
		pgResetRepo  *repository.PgPasswordResetRepository
		limiter      service.RateLimiter
		refreshStore service.RefreshTokenStore
		events       = service.MultiPublisher{service.NewLogEventPublisher(logger)}
	)
	switch {
	case cfg.ResetTokenStore == config.ResetStoreRedis && redisClient != nil:
		resetStore = repository.NewRedisPasswordResetStore(redisClient, userRepo, cfg.ResetTokenTTL(), cfg.ResetThrottle())
	case cfg.ResetTokenStore == config.ResetStoreRedis:
		logger.Fatal("reset token store is redis but redis is unavailable")
	default:
		pgResetRepo = repository.NewPgPasswordResetRepository(pool, cfg.ResetTokenTTL(), cfg.ResetThrottle())
		resetStore = pgResetRepo
	}
	if redisClient != nil {
		limiter = service.NewRedisRateLimiter(redisClient, "ratelimit:", time.Minute, cfg.RateLimitPerMinute)
		refreshStore = service.NewRedisRefreshTokenStore(redisClient)
		events = append(events, service.NewRedisEventPublisher(redisClient, service.EventsChannel))
	} else {
		limiter = service.NewMemoryRateLimiter(time.Minute, cfg.RateLimitPerMinute)
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTServiceWithStore(cfg.JWTSecret, cfg.JWTAccessTTL(), cfg.JWTRefreshTTL(), refreshStore)

	verifier := service.NewEmailVerifier(logger, userRepo, signer, emailHasher, events, time.Now)
	resets := service.NewPasswordResetService(logger, tx, resetStore, userRepo, passwords, links, emailSender, events, time.Now)
	userSvc := service.NewUserService(logger, userRepo, passwords, links, emailSender, events, limiter, time.Now)
	adminSvc := service.NewAdminService(logger, userRepo)

	appURL := strings.TrimRight(cfg.AppURL, "/")
	router := apihttp.NewRouter(logger, apihttp.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Limiter:        limiter,
		JWT:            jwtSvc,
	}, apihttp.Handlers{
		User:         apihttp.NewUserHandler(logger, userSvc, jwtSvc),
		Verification: apihttp.NewVerificationHandler(logger, verifier, appURL+"/login?verified=1"),
		Password:     apihttp.NewPasswordHandler(logger, resets, appURL+"/login?reset=1"),
		Admin:        apihttp.NewAdminHandler(logger, adminSvc),
	})

	if pgResetRepo != nil {
		go pruneResetTokens(ctx, logger, pgResetRepo)
	}

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}

// connectRedis devuelve nil si Redis no esta configurado o no responde.
func connectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed", zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

func pruneResetTokens(ctx context.Context, logger *zap.Logger, repo *repository.PgPasswordResetRepository) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := repo.PruneExpired(ctx, now)
			if err != nil {
				logger.Warn("prune reset tokens failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("pruned expired reset tokens", zap.Int64("count", n))
			}
		}
	}
}
