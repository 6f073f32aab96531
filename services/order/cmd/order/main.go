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
	"github.com/Skotchmaster/order_portal/pkg/authclient"
	pkgdb "github.com/Skotchmaster/order_portal/pkg/db"
	"github.com/Skotchmaster/order_portal/pkg/events"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	middleware "github.com/Skotchmaster/order_portal/pkg/middleware/auth"
	"github.com/Skotchmaster/order_portal/pkg/middleware/cors"
	loggingmw "github.com/Skotchmaster/order_portal/pkg/middleware/logging"
	"github.com/Skotchmaster/order_portal/pkg/middleware/ratelimit"

	ordercfg "github.com/Skotchmaster/order_portal/services/order/internal/config"
	"github.com/Skotchmaster/order_portal/services/order/internal/httpserver"
	"github.com/Skotchmaster/order_portal/services/order/internal/repo"
	"github.com/Skotchmaster/order_portal/services/order/internal/search"
	"github.com/Skotchmaster/order_portal/services/order/internal/service"
)

func main() {
	cfg := ordercfg.Load()

	logger := logging.ForService(cfg.LogLevel, cfg.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	orderRepo := repo.NewGormRepo(db)
	if err := orderRepo.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
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

	articles := &service.ArticleService{Repo: orderRepo, Events: publisher}
	if cfg.ES.URL != "" {
		esCtx, esCancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := search.NewClient(esCtx, cfg.ES)
		esCancel()
		if err != nil {
			logger.Warn("elasticsearch unavailable, search falls back to the database", "error", err)
		} else {
			articles.Index = search.NewESIndex(client, cfg.ES.Index)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("failed to connect to Redis, rate limits are per instance", "error", err)
			redisClient = nil
		}
	}

	handler := &httpserver.OrderHTTP{
		Orders: &service.OrderService{
			Repo:   orderRepo,
			Events: publisher,
			Prefix: cfg.OrderNumberPrefix,
		},
		Articles:        articles,
		Recommendations: &service.RecommendationService{Repo: orderRepo},
	}

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
		Prefix:   "rl:order:global:",
		Redis:    redisClient,
	}))

	httpserver.Register(e, &httpserver.Deps{
		Handler: handler,
		Auth:    middleware.NewIntrospector(cfg.AccessSecret(), authclient.NewClient(cfg.AuthHTTPURL)),
		Ready:   func(ctx context.Context) error { return pkgdb.Ping(ctx, db) },
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		slog.Info("order listening", "addr", srv.Addr)
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

	slog.Info("order stopped")
}
