package config

import (
	"log"
	"os"

	"github.com/Skotchmaster/order_portal/pkg/config"
)

type ESConfig struct {
	URL      string `env:"ES_URL"`
	User     string `env:"ES_USER"`
	Password string `env:"ES_PASSWORD"`
	Index    string `env:"ES_INDEX" envDefault:"articles"`
}

type ServiceConfig struct {
	config.Config
	ES ESConfig

	OrderNumberPrefix string `env:"ORDER_NUMBER_PREFIX" envDefault:"ORD"`
}

func Load() ServiceConfig {
	config.LoadDotenv("services/order/.env", ".env")

	var cfg ServiceConfig
	if err := config.Parse(&cfg, nil); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "order"
	}
	if os.Getenv("SERVER_PORT") == "" {
		cfg.ServerPort = 4002
	}

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.AccessSecret(), "JWT_SECRET")
	config.MustNonEmpty(cfg.AuthHTTPURL, "AUTH_URL")
	config.MustNonEmpty(cfg.OrderNumberPrefix, "ORDER_NUMBER_PREFIX")

	return cfg
}
