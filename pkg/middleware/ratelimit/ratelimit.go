package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/order_portal/pkg/apperr"
	"github.com/Skotchmaster/order_portal/pkg/logging"
)

type Config struct {
	Requests int
	Window   time.Duration
	// Prefix namespaces the Redis keys so several limiters can share one instance.
	Prefix string
	Redis  *redis.Client
}

// RedisStore is a fixed-window counter shared by every replica of a service.
type RedisStore struct {
	client  *redis.Client
	limit   int64
	window  time.Duration
	prefix  string
	timeout time.Duration
}

func NewRedisStore(client *redis.Client, limit int, window time.Duration, prefix string) *RedisStore {
	return &RedisStore{
		client:  client,
		limit:   int64(limit),
		window:  window,
		prefix:  prefix,
		timeout: 200 * time.Millisecond,
	}
}

// Allow fails open: a Redis outage must not lock users out of login.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	key := s.prefix + identifier
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		logging.FromContext(ctx).Warn("ratelimit_store_unavailable", "error", err)
		return true, nil
	}
	if n == 1 {
		if err := s.client.Expire(ctx, key, s.window).Err(); err != nil {
			logging.FromContext(ctx).Warn("ratelimit_expire_failed", "key", key, "error", err)
		}
	}
	return n <= s.limit, nil
}

func newMemoryStore(requests int, window time.Duration) echomw.RateLimiterStore {
	return echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(requests) / window.Seconds()),
		Burst:     requests,
		ExpiresIn: window,
	})
}

func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.Requests <= 0 {
		cfg.Requests = 300
	}
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}

	var store echomw.RateLimiterStore
	if cfg.Redis != nil {
		store = NewRedisStore(cfg.Redis, cfg.Requests, cfg.Window, cfg.Prefix)
	} else {
		store = newMemoryStore(cfg.Requests, cfg.Window)
	}

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return apperr.New(http.StatusForbidden, apperr.CodeForbidden, "cannot identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			c.Response().Header().Set("Retry-After", retryAfter(cfg.Window))
			return apperr.New(http.StatusTooManyRequests, apperr.CodeRateLimited, "too many requests, try again later")
		},
	})
}

func retryAfter(window time.Duration) string {
	return strconv.Itoa(int(window.Seconds()))
}
