package config

import (
	"log"
	"os"

	"github.com/Skotchmaster/order_portal/pkg/config"
)

type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	Name     string `env:"ADMIN_NAME" envDefault:"Administrator"`
}

type ServiceConfig struct {
	config.Config
	Admin AdminConfig

	AuthRateLimitRequests int `env:"AUTH_RATE_LIMIT_REQUESTS" envDefault:"20"`

	// Resolved from JWT_REFRESH_SECRET, or from JWT_SECRET when the fallback is on.
	RefreshSecretBytes    []byte
	RefreshSecretFellBack bool
}

func Load() ServiceConfig {
	config.LoadDotenv("services/auth/.env", ".env")

	var cfg ServiceConfig
	if err := config.Parse(&cfg, nil); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "auth"
	}
	if os.Getenv("SERVER_PORT") == "" {
		cfg.ServerPort = 4001
	}

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.AccessSecret(), "JWT_SECRET")
	config.MustPositive(cfg.AuthRateLimitRequests, "AUTH_RATE_LIMIT_REQUESTS")

	secret, fellBack, err := cfg.RefreshSecret()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.RefreshSecretBytes = secret
	cfg.RefreshSecretFellBack = fellBack

	return cfg
}
