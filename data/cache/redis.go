package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/KotFed0t/index_rebalancer/config"
	"github.com/KotFed0t/index_rebalancer/internal/model"
	"github.com/KotFed0t/index_rebalancer/utils"
	"github.com/redis/go-redis/v9"
)

const universeKeyPrefix = "universe:"

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func universeKey(sourceName, date string) string {
	return universeKeyPrefix + sourceName + ":" + date
}

func (r *RedisCache) SetUniverse(ctx context.Context, sourceName, date string, universe []model.MarketData) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start SetUniverse", slog.String("rqID", rqID), slog.String("date", date))

	universeJson, err := json.Marshal(universe)
	if err != nil {
		slog.Error("can't marshall universe in SetUniverse", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshall universe")
	}

	err = r.redis.Set(ctx, universeKey(sourceName, date), universeJson, r.cfg.Cache.UniverseExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetUniverse completed", slog.String("rqID", rqID), slog.String("date", date))

	return nil
}

func (r *RedisCache) GetUniverse(ctx context.Context, sourceName, date string) ([]model.MarketData, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	key := universeKey(sourceName, date)
	slog.Debug("GetUniverse start", slog.String("rqID", rqID), slog.String("key", key))

	res, err := r.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		}
		return nil, err
	}

	var universe []model.MarketData
	err = json.Unmarshal([]byte(res), &universe)
	if err != nil {
		slog.Error(
			"can't unmarshall universe in GetUniverse",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return nil, errors.New("can't unmarshall universe")
	}

	slog.Debug("GetUniverse finished", slog.String("rqID", rqID), slog.String("key", key))

	return universe, nil
}
