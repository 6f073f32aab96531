package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
	pkgdb "github.com/Skotchmaster/order_portal/pkg/db"
	"github.com/Skotchmaster/order_portal/pkg/events"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	"github.com/Skotchmaster/order_portal/pkg/middleware/cors"
	loggingmw "github.com/Skotchmaster/order_portal/pkg/middleware/logging"
	"github.com/Skotchmaster/order_portal/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/order_portal/pkg/tokens"

	authcfg "github.com/Skotchmaster/order_portal/services/auth/internal/config"
	"github.com/Skotchmaster/order_portal/services/auth/internal/httpserver"
	"github.com/Skotchmaster/order_portal/services/auth/internal/repo"
	"github.com/Skotchmaster/order_portal/services/auth/internal/service"
)

func main() {
	cfg := authcfg.Load()

	logger := logging.ForService(cfg.LogLevel, cfg.ServiceName)
	if cfg.RefreshSecretFellBack {
		logger.Warn("JWT_REFRESH_SECRET is not set, refresh tokens are signed with JWT_SECRET")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	userRepo := repo.NewGormRepo(db)
	if err := userRepo.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	issuer, err := tokens.NewIssuer(tokens.Config{
		AccessSecret:  cfg.AccessSecret(),
		RefreshSecret: cfg.RefreshSecretBytes,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
		Issuer:        cfg.JWTIssuer,
	})
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	var publisher events.Publisher = events.Nop{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer, err := events.NewProducer(brokers)
		if err != nil {
			log.Fatalf("kafka producer: %v", err)
		}
		publisher = producer
	}
	defer publisher.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("failed to connect to Redis, rate limits are per instance", "error", err)
			redisClient = nil
		}
	}

	svc := &service.AuthService{
		Repo:   userRepo,
		Tokens: issuer,
		Events: publisher,
	}

	bootCtx, bootCancel := context.WithTimeout(logging.IntoContext(context.Background(), logger), 10*time.Second)
	if err := svc.EnsureAdmin(bootCtx, service.AdminAccount{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		Name:     cfg.Admin.Name,
	}); err != nil {
		bootCancel()
		log.Fatalf("admin bootstrap: %v", err)
	}
	bootCancel()

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLoggerWithConfig(logger, loggingmw.Config{Skipper: loggingmw.SkipHealth, SlowThreshold: time.Second}))
	e.Use(echomw.Secure())
	e.Use(cors.Middleware(cfg.AllowedOrigins()))
	e.Use(ratelimit.Middleware(ratelimit.Config{
		Requests: cfg.RateLimitRequests,
		Window:   cfg.RateLimitWindow,
		Prefix:   "rl:auth:global:",
		Redis:    redisClient,
	}))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		Tokens:      issuer,
		AuthLimiter: ratelimit.Middleware(ratelimit.Config{
			Requests: cfg.AuthRateLimitRequests,
			Window:   cfg.RateLimitWindow,
			Prefix:   "rl:auth:login:",
			Redis:    redisClient,
		}),
		Ready: func(ctx context.Context) error { return pkgdb.Ping(ctx, db) },
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		slog.Info("auth listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	pkgdb.Close(db)

	slog.Info("auth stopped")
}
