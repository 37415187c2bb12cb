package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/config"
)

const (
	redisConnectAttempts = 5
	redisConnectBackoff  = time.Second
)

// NewRedisClient connects to Redis, which holds the record store, the
// session tokens and the compensation queue. Redis often starts after the
// backend in compose setups, so the first ping is retried.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opt.ClientName = "perizinan-backend"

	rdb := redis.NewClient(opt)

	for attempt := 1; ; attempt++ {
		err = rdb.Ping(ctx).Err()
		if err == nil {
			break
		}
		if attempt == redisConnectAttempts {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Redis not ready, retrying")
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(redisConnectBackoff * time.Duration(attempt)):
		}
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Msg("Redis connected")

	return rdb, nil
}
