package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dynastycalc/trade-engine/internal/store"
)

// logLevel maps LOG_LEVEL to a slog level. Anything unknown is info.
func logLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// allowedOrigins splits CORS_ORIGINS on commas. Empty allows every origin.
func allowedOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// snapshotBackend picks the store from SNAPSHOT_BACKEND, or infers it from
// which connection variables are set.
func snapshotBackend() string {
	if b := strings.ToLower(strings.TrimSpace(os.Getenv("SNAPSHOT_BACKEND"))); b != "" {
		return b
	}
	switch {
	case os.Getenv("DATABASE_URL") != "":
		return "postgres"
	case os.Getenv("REDIS_URL") != "":
		return "redis"
	case os.Getenv("SQLITE_FILE") != "":
		return "sqlite"
	default:
		return "memory"
	}
}

// openStore connects the snapshot store. The returned cleanup functions
// release connections and run in order.
func openStore(ctx context.Context) (store.Store, []func(), error) {
	var cleanup []func()

	switch backend := snapshotBackend(); backend {
	case "postgres":
		dbURL := os.Getenv("DATABASE_URL")
		if dbURL == "" {
			return nil, nil, errors.New("postgres backend needs DATABASE_URL")
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		slog.Info("connected to PostgreSQL")

		var st store.Store = pg
		// Wrap with a Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			rdb, err := openRedis(redisURL)
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
		return st, cleanup, nil

	case "redis":
		rdb, err := openRedis(os.Getenv("REDIS_URL"))
		if err != nil {
			return nil, nil, err
		}
		cleanup = append(cleanup, func() { rdb.Close() })
		slog.Info("using Redis snapshot store")
		return store.NewRedisStore(rdb, "tradecalc:"), cleanup, nil

	case "sqlite":
		path := os.Getenv("SQLITE_FILE")
		if path == "" {
			path = "tradecalc.db"
		}
		sq, err := store.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		cleanup = append(cleanup, func() { sq.Close() })
		slog.Info("using SQLite snapshot store", "path", path)
		return sq, cleanup, nil

	case "memory":
		slog.Warn("no snapshot backend configured, using in-memory store (settings will not persist)")
		return store.NewMemoryStore(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown SNAPSHOT_BACKEND %q", backend)
	}
}

func openRedis(url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis backend needs REDIS_URL")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opt), nil
}
