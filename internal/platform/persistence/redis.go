package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/distributor-bonus-ledger/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects the directory cache. It returns a nil client when no
// address is configured; callers treat nil as "cache disabled".
func NewRedisClient(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		logger.Info("Redis address is not configured. Directory cache disabled.")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)
	return client, nil
}
