package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	minSecretLen = 32
)

type Config struct {
	Service  string `env:"SERVICE_NAME" envDefault:"card"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"card.db"`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	DatabaseURL    string `env:"DATABASE_URL"`

	SessionSecret      string        `env:"SESSION_SECRET"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionIdle        time.Duration `env:"SESSION_IDLE" envDefault:"30m"`
	SessionLimitPerMin int           `env:"SESSION_LIMIT_PER_MIN" envDefault:"10"`
	TrustProxy         bool          `env:"TRUST_PROXY" envDefault:"false"`

	AddToCartDelay time.Duration `env:"ADD_TO_CART_DELAY" envDefault:"800ms"`
	BuyNowDelay    time.Duration `env:"BUY_NOW_DELAY" envDefault:"1s"`
	FlowResetDelay time.Duration `env:"FLOW_RESET_DELAY" envDefault:"2s"`

	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsToken   string `env:"METRICS_TOKEN"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if len(c.SessionSecret) < minSecretLen {
		return fmt.Errorf("SESSION_SECRET is required and must be at least %d chars", minSecretLen)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.SessionIdle <= 0 {
		return fmt.Errorf("SESSION_IDLE must be positive")
	}
	if c.SessionLimitPerMin <= 0 {
		return fmt.Errorf("SESSION_LIMIT_PER_MIN must be positive")
	}
	if c.AddToCartDelay < 0 || c.BuyNowDelay < 0 || c.FlowResetDelay < 0 {
		return fmt.Errorf("flow delays must not be negative")
	}
	return nil
}
