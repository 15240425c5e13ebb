package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || cfg.StorageBackend != BackendMemory {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.AddToCartDelay != 800*time.Millisecond || cfg.BuyNowDelay != time.Second || cfg.FlowResetDelay != 2*time.Second {
		t.Fatalf("delays=%v %v %v", cfg.AddToCartDelay, cfg.BuyNowDelay, cfg.FlowResetDelay)
	}
	if cfg.SessionTTL != 720*time.Hour {
		t.Fatalf("ttl=%v", cfg.SessionTTL)
	}
	if cfg.TrustProxy {
		t.Fatalf("forwarded headers trusted by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("BUY_NOW_DELAY", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageBackend != BackendRedis || cfg.RedisDB != 3 || cfg.BuyNowDelay != 250*time.Millisecond {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		StorageBackend:     BackendMemory,
		SessionSecret:      testSecret,
		SessionTTL:         time.Hour,
		SessionIdle:        time.Minute,
		SessionLimitPerMin: 5,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base invalid: %v", err)
	}

	cases := map[string]func(c *Config){
		"short secret":      func(c *Config) { c.SessionSecret = "dev" },
		"unknown backend":   func(c *Config) { c.StorageBackend = "etcd" },
		"postgres no dsn":   func(c *Config) { c.StorageBackend = BackendPostgres },
		"zero ttl":          func(c *Config) { c.SessionTTL = 0 },
		"zero idle":         func(c *Config) { c.SessionIdle = 0 },
		"negative delay":    func(c *Config) { c.BuyNowDelay = -time.Second },
		"zero session rate": func(c *Config) { c.SessionLimitPerMin = 0 },
	}

	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_ReportsValidationError(t *testing.T) {
	t.Setenv("SESSION_SECRET", "short")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "SESSION_SECRET") {
		t.Fatalf("err=%v", err)
	}
}
