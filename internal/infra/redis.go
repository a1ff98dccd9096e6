package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 5 * time.Second

// redisOptions parses the URL and sizes the pool: each queue worker parks
// one connection on BRPOP, so the stock cache gets its own share on top.
func redisOptions(redisURL string, workers int) (*redis.Options, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: REDIS_URL inválida: %w", err)
	}
	if workers < 0 {
		workers = 0
	}
	if minimo := workers + 10; opts.PoolSize < minimo {
		opts.PoolSize = minimo
	}
	// Cache calls sit on the request path and fail over to the store.
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	return opts, nil
}

// NewRedis connects the client shared by the stock cache, the incident queue
// and its workers, and checks it answers before the server starts.
func NewRedis(ctx context.Context, redisURL string, workers int) (*redis.Client, error) {
	opts, err := redisOptions(redisURL, workers)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: sin respuesta en %s: %w", opts.Addr, err)
	}
	return rdb, nil
}
