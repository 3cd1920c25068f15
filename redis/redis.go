package redis

import (
	"context"
	"time"

	"github.com/Linanok/Linanok/config"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

// NewClient connects the Redis client shared by the visit job queue and the
// password attempt limiter. The connection is verified with a bounded ping
// before the client is handed out.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	timeout := time.Duration(cfg.OperationTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	log.Info().Str("address", cfg.Address).Int("db", cfg.DB).Msg("Connected to Redis")
	return rdb, nil
}
