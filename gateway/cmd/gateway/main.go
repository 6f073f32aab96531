package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/order_portal/gateway/internal/config"
	"github.com/Skotchmaster/order_portal/gateway/internal/httpserver"
	"github.com/Skotchmaster/order_portal/gateway/internal/middleware"
	"github.com/Skotchmaster/order_portal/gateway/internal/middleware/csrf"
	"github.com/Skotchmaster/order_portal/gateway/internal/session"
	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/authclient"
	"github.com/Skotchmaster/order_portal/pkg/logging"
	"github.com/Skotchmaster/order_portal/pkg/middleware/ratelimit"
	"github.com/Skotchmaster/order_portal/pkg/tokens"
)

func main() {
	cfg := config.Load()

	logger := logging.ForService(cfg.LogLevel, cfg.ServiceName)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("failed to connect to Redis, rate limits are per instance", "error", err)
			redisClient = nil
		}
	}

	orchestrator := &session.Orchestrator{
		Identity: authclient.NewClient(cfg.AuthHTTPURL),
		Secure:   cfg.CookieSecure,
		MaxBody:  cfg.MaxBodyBytes,
	}
	if secret := cfg.AccessSecret(); len(secret) > 0 {
		orchestrator.Verify = func(token string) error {
			_, err := tokens.AccessClaimsFromToken(token, secret)
			return err
		}
	} else {
		logger.Info("JWT_SECRET is not set, access cookies are checked by the services only")
	}

	var csrfCfg *csrf.Config
	if cfg.CSRFEnabled {
		c := csrf.DefaultConfig()
		c.Secure = cfg.CookieSecure
		c.EnforceSameOrigin = cfg.CSRFSameOrigin
		c.SkipPaths = httpserver.CSRFSkipPaths
		csrfCfg = &c
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = apperr.ErrorHandler
	for _, m := range middleware.Common(logger) {
		e.Use(m)
	}

	authClient := &http.Client{Timeout: 2 * time.Second}
	if err := httpserver.Register(e, &httpserver.Deps{
		AuthURL:  cfg.AuthHTTPURL,
		OrderURL: cfg.OrderURL,
		Session:  orchestrator,
		CSRF:     csrfCfg,
		Limiter: ratelimit.Middleware(ratelimit.Config{
			Requests: cfg.RateLimitRequests,
			Window:   cfg.RateLimitWindow,
			Prefix:   "rl:gateway:global:",
			Redis:    redisClient,
		}),
		Ready: func(ctx context.Context) error { return ping(ctx, authClient, cfg.AuthHTTPURL, cfg.OrderURL) },
	}); err != nil {
		log.Fatalf("routes: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		slog.Info("gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	slog.Info("gateway stopped")
}

// ping checks that every backend answers its liveness probe.
func ping(ctx context.Context, hc *http.Client, urls ...string) error {
	for _, u := range urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"/health/live", nil)
		if err != nil {
			return err
		}
		resp, err := hc.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("backend %s answered %d", u, resp.StatusCode)
		}
	}
	return nil
}
