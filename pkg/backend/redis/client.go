package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout  = 2 * time.Second
	defaultReadTimeout  = 2 * time.Second
	defaultWriteTimeout = 2 * time.Second
	defaultPoolTimeout  = 2 * time.Second

	defaultPoolSize     = 20
	defaultMinIdleConns = 2
)

// Config holds the connection settings for NewClient. Shared-state reads
// and writes are small and frequent, so the client keeps short timeouts
// and a warm pool.
type Config struct {
	// Typically "localhost:6379"
	Addr     string
	Password string
	DB       int
}

// NewClient builds a Redis client suitable for circuit-state storage, with
// otel tracing and metrics instrumentation attached. Callers that already
// hold a configured client can pass it to NewBackend directly.
func NewClient(c Config, logger *slog.Logger) *redis.Client {
	if logger == nil {
		logger = slog.Default()
	}

	// Attach component metadata once
	logger = logger.With(
		slog.String("component", "redis"),
		slog.String("addr", c.Addr),
		slog.Int("db", c.DB),
	)

	logger.Info("initializing redis client")

	rdb := redis.NewClient(&redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		PoolTimeout:  defaultPoolTimeout,
		PoolSize:     defaultPoolSize,
		MinIdleConns: defaultMinIdleConns,
	})

	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Warn("otel tracing instrumentation failed", "err", err)
	}
	if err := redisotel.InstrumentMetrics(rdb); err != nil {
		logger.Warn("otel metrics instrumentation failed", "err", err)
	}

	return rdb
}

func Ping(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}
