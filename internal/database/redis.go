package database

import (
	"context"
	"fmt"

	"polling_contract/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis: %w", err)
	}

	logger.Info().Str("address", cfg.Address).Msg("Connected to Redis")
	return rdb, nil
}
