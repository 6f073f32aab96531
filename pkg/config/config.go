package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var ErrMissingRefreshSecret = errors.New("JWT_REFRESH_SECRET is empty and JWT_REFRESH_SECRET_FALLBACK is off")

type Config struct {
	ServiceName string `env:"SERVICE_NAME"`
	ServerPort  int    `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL"`

	JWTAccessSecret    string        `env:"JWT_SECRET"`
	JWTRefreshSecret   string        `env:"JWT_REFRESH_SECRET"`
	JWTRefreshFallback bool          `env:"JWT_REFRESH_SECRET_FALLBACK" envDefault:"false"`
	JWTAccessTTL       time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m"`
	JWTRefreshTTL      time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	JWTIssuer          string        `env:"JWT_ISSUER" envDefault:"order-portal"`

	AuthHTTPURL string `env:"AUTH_URL"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"300"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`

	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`

	// Browser origins allowed to call a backend directly; empty disables CORS.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// LoadDotenv reads the first .env file that exists; absence is not an error.
func LoadDotenv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Printf("warning: could not load %s: %v", p, err)
		}
		return
	}
}

// Parse fills any env-tagged struct. A nil environment means the process env.
func Parse(target any, environment map[string]string) error {
	opts := env.Options{}
	if environment != nil {
		opts.Environment = environment
	}
	if err := env.Parse(target, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Load() Config {
	var cfg Config
	if err := Parse(&cfg, nil); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// Brokers trims whitespace and drops empty entries from KAFKA_BROKERS.
func (c Config) Brokers() []string {
	return CSV(strings.Join(c.KafkaBrokers, ","))
}

// AllowedOrigins trims whitespace and drops empty entries from CORS_ALLOWED_ORIGINS.
func (c Config) AllowedOrigins() []string {
	return CSV(strings.Join(c.CORSAllowedOrigins, ","))
}

func (c Config) AccessSecret() []byte {
	return []byte(c.JWTAccessSecret)
}

// RefreshSecret returns the refresh signing key. With the fallback flag on, an
// empty refresh secret resolves to the access secret and fellBack is true.
func (c Config) RefreshSecret() (secret []byte, fellBack bool, err error) {
	if c.JWTRefreshSecret != "" {
		return []byte(c.JWTRefreshSecret), false, nil
	}
	if c.JWTRefreshFallback && c.JWTAccessSecret != "" {
		return []byte(c.JWTAccessSecret), true, nil
	}
	return nil, false, ErrMissingRefreshSecret
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
