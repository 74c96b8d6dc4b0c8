package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CHESS2_ADDR", "ALLOWED_ORIGINS", "REDIS_URL", "DATABASE_URL", "ROOM_TTL_SECONDS", "MESSAGE_OVERRIDE_DIR"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8001" || cfg.RoomTTL != 24*time.Hour {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.RedisURL != "" || cfg.DatabaseURL != "" {
		t.Fatalf("storage urls set by default: %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHESS2_ADDR", ":9000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("DATABASE_URL", "postgres://chess2@localhost/chess2")
	t.Setenv("ROOM_TTL_SECONDS", "600")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.RedisURL != "redis://localhost:6379/2" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	if cfg.RoomTTL != 10*time.Minute {
		t.Fatalf("ttl = %v", cfg.RoomTTL)
	}
}

func TestLoadIgnoresBadTTL(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROOM_TTL_SECONDS", "soon")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RoomTTL != 24*time.Hour {
		t.Fatalf("ttl = %v", cfg.RoomTTL)
	}
}
