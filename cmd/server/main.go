package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/xblt/config"
	"github.com/ErlanBelekov/xblt/internal/email"
	"github.com/ErlanBelekov/xblt/internal/health"
	"github.com/ErlanBelekov/xblt/internal/infrastructure/mongodb"
	"github.com/ErlanBelekov/xblt/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/xblt/internal/infrastructure/redisdb"
	ctxlog "github.com/ErlanBelekov/xblt/internal/log"
	"github.com/ErlanBelekov/xblt/internal/metrics"
	"github.com/ErlanBelekov/xblt/internal/oauth"
	"github.com/ErlanBelekov/xblt/internal/repository"
	"github.com/ErlanBelekov/xblt/internal/token"
	httptransport "github.com/ErlanBelekov/xblt/internal/transport/http"
	"github.com/ErlanBelekov/xblt/internal/transport/http/handler"
	"github.com/ErlanBelekov/xblt/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

// otpStore is an OTP repository that can also be health-checked.
type otpStore interface {
	repository.OTPRepository
	health.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	logger.Info("db connected")

	otps, closeOTPs, err := newOTPStore(ctx, cfg)
	if err != nil {
		log.Fatalf("otp store: %v", err)
	}
	defer closeOTPs()
	logger.Info("otp store connected", "backend", cfg.OTPStore, "exclusive", cfg.OTPExclusive)

	// Users
	userRepo := postgres.NewUserRepository(pool)
	tokens := token.NewManager([]byte(cfg.JWTSecret), cfg.JWTExpiresIn)

	// OTP
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	otpUsecase := usecase.NewOTPUsecase(userRepo, otps, sender, logger)

	// OAuth
	google, err := oauth.NewGoogleProvider(ctx, oauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleCallbackURL,
	})
	if err != nil {
		log.Fatalf("google oauth: %v", err)
	}
	oauthUsecase := usecase.NewOAuthUsecase(userRepo, tokens)

	handlers := httptransport.Handlers{
		OTP:   handler.NewOTPHandler(otpUsecase, logger),
		OAuth: handler.NewOAuthHandler(google, oauthUsecase, cfg.FrontendURL, cfg.CookieSecure, logger),
		User:  handler.NewUserHandler(usecase.NewUserUsecase(userRepo), logger),
	}

	metrics.Register()
	checker := health.NewChecker(map[string]health.Pinger{
		"postgres":  pool,
		"otp_store": otps,
	}, logger, prometheus.DefaultRegisterer)

	probes := cron.New()
	if err := checker.Schedule(probes, "@every 30s"); err != nil {
		log.Fatalf("health schedule: %v", err)
	}
	probes.Start()

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httptransport.NewRouter(logger, handlers, tokens),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	<-probes.Stop().Done()
	otpUsecase.Wait()
}

func newOTPStore(ctx context.Context, cfg *config.Config) (otpStore, func(), error) {
	switch cfg.OTPStore {
	case "redis":
		rdb, err := redisdb.NewClient(ctx, redisdb.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisdb.NewOTPRepository(rdb, cfg.OTPExclusive), func() { _ = rdb.Close() }, nil
	default:
		client, err := mongodb.NewClient(ctx, cfg.MongoURL)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }

		repo := mongodb.NewOTPRepository(client, cfg.MongoDatabase, cfg.OTPExclusive)
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
