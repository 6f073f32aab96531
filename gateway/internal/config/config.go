package config

import (
	"log"

	"github.com/Skotchmaster/order_portal/pkg/config"
)

type Config struct {
	config.Config

	OrderURL string `env:"ORDER_URL"`

	CSRFEnabled    bool  `env:"CSRF_ENABLED" envDefault:"true"`
	CSRFSameOrigin bool  `env:"CSRF_SAME_ORIGIN" envDefault:"true"`
	MaxBodyBytes   int64 `env:"GATEWAY_MAX_BODY_BYTES" envDefault:"1048576"`
}

func Load() Config {
	config.LoadDotenv("gateway/.env", ".env")

	var cfg Config
	if err := config.Parse(&cfg, nil); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "gateway"
	}

	config.MustNonEmpty(cfg.AuthHTTPURL, "AUTH_URL")
	config.MustNonEmpty(cfg.OrderURL, "ORDER_URL")
	if cfg.MaxBodyBytes <= 0 {
		log.Fatalf("env GATEWAY_MAX_BODY_BYTES must be positive, got %d", cfg.MaxBodyBytes)
	}

	return cfg
}
