// Command tripwire-demo wires a Redis-backed shared breaker around a
// plain HTTP health check and polls it until interrupted. Run several
// copies against the same Redis to watch a failure detected by one
// instance open the circuit in all of them.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DSACMS/tripwire/internal/config"
	redisbackend "github.com/DSACMS/tripwire/pkg/backend/redis"
	"github.com/DSACMS/tripwire/pkg/guard"
)

var errUnhealthy = errors.New("target returned a server error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("demo failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	logger.Info("starting", "target", cfg.TargetURL, "breaker", cfg.Breaker.Name)

	rdb := redisbackend.NewClient(redisbackend.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	defer rdb.Close()

	if err := redisbackend.Ping(ctx, rdb); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}

	g, err := guard.New(ctx, cfg.Breaker.Name,
		guard.WithBackend(redisbackend.NewBackend(rdb)),
		guard.WithFailureThreshold(cfg.Breaker.FailureThreshold),
		guard.WithRecoveryTimeout(cfg.Breaker.RecoveryTimeout),
		guard.WithFailureOn(errUnhealthy),
		guard.WithLogger(logger),
		guard.WithFallback(func(_ context.Context, err error) error {
			logger.Warn("call blocked, circuit is open")
			return err
		}),
	)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	check := guard.Wrap(g, func(ctx context.Context) error {
		return probe(ctx, client, cfg.TargetURL)
	})

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down", "state", string(g.State().Status))
			return nil
		case <-ticker.C:
			if err := check(ctx); err != nil {
				logger.Warn("check failed", "err", err, "failure_count", g.State().FailureCount)
				continue
			}
			logger.Info("check ok", "state", string(g.State().Status))
		}
	}
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errUnhealthy, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", errUnhealthy, resp.StatusCode)
	}
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
}
