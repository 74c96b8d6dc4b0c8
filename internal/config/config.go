// Package config loads server settings from the environment. Everything has
// a workable default so a bare `chess2-server` run comes up on :8001 with
// in-memory storage.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	// Addr is the HTTP listen address.
	Addr string

	// AllowedOrigins feeds both CORS and the websocket origin check.
	// The default "*" admits everyone.
	AllowedOrigins []string

	// RedisURL selects the Redis session store (redis://host:port/db).
	// Empty means sessions live in process memory.
	RedisURL string

	// DatabaseURL selects the Postgres game archive. Empty means finished
	// games are kept in process memory.
	DatabaseURL string

	// RoomTTL bounds how long an untouched room survives in Redis.
	RoomTTL time.Duration

	// MessageDir optionally overrides entries of the embedded message
	// catalog.
	MessageDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Addr:           ":8001",
		AllowedOrigins: []string{"*"},
		RoomTTL:        24 * time.Hour,
	}

	if v := strings.TrimSpace(os.Getenv("CHESS2_ADDR")); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = nil
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
		if len(cfg.AllowedOrigins) == 0 {
			cfg.AllowedOrigins = []string{"*"}
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_OVERRIDE_DIR"))

	if v := strings.TrimSpace(os.Getenv("ROOM_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RoomTTL = time.Duration(n) * time.Second
		}
	}

	return cfg, nil
}
