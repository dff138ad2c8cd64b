package data

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/index_rebalancer/config"
	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 5 * time.Second

// NewRedisClient connects to the universe cache. Panics when redis is unreachable.
func NewRedisClient(cfg *config.Config) *redis.Client {
	addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Error while connecting Redis", slog.String("addr", addr), slog.String("error", err.Error()))
		panic(err)
	}
	slog.Info("Redis connected", slog.String("addr", addr), slog.Int("db", cfg.Redis.DB))

	return rdb
}
