package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/rpggio/notebox/internal/config"
	"github.com/rpggio/notebox/internal/memstore"
	"github.com/rpggio/notebox/internal/redisstore"
	"github.com/rpggio/notebox/internal/sqlite"
	"github.com/rpggio/notebox/internal/storage"
)

// openMedium opens the configured storage driver. The returned func releases
// everything it opened.
func openMedium(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Medium, func() error, error) {
	sc := cfg.Storage
	switch sc.Driver {
	case config.DriverSQLite:
		if err := ensureDBDir(sc.Path); err != nil {
			return nil, nil, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(sc.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.RunMigrations(); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		kv := sqlite.NewKVStore(db,
			sqlite.WithQuota(sc.QuotaBytes),
			sqlite.WithPollInterval(sc.PollInterval),
			sqlite.WithLogger(logger),
		)
		logger.Info("storage ready", "driver", sc.Driver, "path", sc.Path, "writer", kv.Writer())
		return kv, func() error {
			return errors.Join(kv.Close(), db.Close())
		}, nil

	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{Addr: sc.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", sc.RedisAddr, err)
		}
		store, err := redisstore.New(ctx, rdb,
			redisstore.WithPrefix(sc.RedisPrefix),
			redisstore.WithQuota(sc.QuotaBytes),
			redisstore.WithLogger(logger),
		)
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		logger.Info("storage ready", "driver", sc.Driver, "addr", sc.RedisAddr)
		return store, func() error {
			return errors.Join(store.Close(), rdb.Close())
		}, nil

	case config.DriverMemory:
		handle := memstore.NewShared(sc.QuotaBytes).Open()
		logger.Warn("storage is in memory; records are lost on exit")
		return handle, handle.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
