package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appcfg "github.com/Mkharboutley/chess2/internal/config"
	"github.com/Mkharboutley/chess2/internal/gateway"
	"github.com/Mkharboutley/chess2/internal/msgcat"
	"github.com/Mkharboutley/chess2/internal/obslog"
	"github.com/Mkharboutley/chess2/internal/room"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	store, rdb, err := buildStore(cfg, logger)
	if err != nil {
		log.Fatalf("store init error: %v", err)
	}
	archive, db, err := buildArchive(cfg, logger)
	if err != nil {
		log.Fatalf("archive init error: %v", err)
	}

	catalog, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	manager, err := room.NewManager(store, archive, logger)
	if err != nil {
		log.Fatalf("room manager error: %v", err)
	}
	registry := gateway.NewRegistry(logger)

	srv, err := gateway.NewServer(gateway.Options{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.AllowedOrigins,
	}, manager, registry, catalog, logger)
	if err != nil {
		log.Fatalf("server init error: %v", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	logger.Info("server_start", zap.String("addr", cfg.Addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("server_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server_listen_error", zap.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("server_shutdown_error", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	logger.Info("server_stop")
}

// buildStore picks Redis when REDIS_URL is set and the in-memory store
// otherwise. A configured but unreachable Redis is a startup failure, not a
// silent fallback.
func buildStore(cfg *appcfg.AppConfig, logger *zap.Logger) (room.Store, *redis.Client, error) {
	if cfg.RedisURL == "" {
		logger.Info("store_memory")
		return room.NewMemStore(), nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	logger.Info("store_redis", zap.String("addr", opts.Addr), zap.Duration("ttl", cfg.RoomTTL))
	return room.NewRedisStore(rdb, cfg.RoomTTL), rdb, nil
}

func buildArchive(cfg *appcfg.AppConfig, logger *zap.Logger) (room.Archive, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("archive_memory")
		return room.NewMemArchive(), nil, nil
	}
	db, err := room.OpenDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	archive := room.NewPGArchive(db)
	mctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Migrate(mctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logger.Info("archive_postgres")
	return archive, db, nil
}
