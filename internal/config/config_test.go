package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "GUEST_STORE", "SESSION_TTL_SECONDS", "CORS_ORIGINS", "CART_REMOTE"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr)
	}
	if cfg.Guest.Backend != "badger" || cfg.CartRemote != "postgres" {
		t.Fatalf("unexpected backends %+v %q", cfg.Guest, cfg.CartRemote)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Fatalf("unexpected ttl %v", cfg.Session.TTL)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GUEST_STORE", "Redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_TTL_SECONDS", "60")
	t.Setenv("SESSION_RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("APP_ENV", "development")

	cfg := FromEnv()
	if cfg.Guest.Backend != "redis" || cfg.Guest.RedisDB != 3 {
		t.Fatalf("unexpected guest config %+v", cfg.Guest)
	}
	if cfg.Session.TTL != time.Minute || cfg.Session.RateLimit != 2.5 {
		t.Fatalf("unexpected session config %+v", cfg.Session)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if !cfg.Development() {
		t.Fatalf("expected development mode")
	}
}
