package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"slackagent/model"
)

// RedisCache stores each history as one JSON document under its key.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCache(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: connect to redis: %v", ErrCache, err)
	}

	logger.Info("connected to redis conversation cache", "url", redactURL(redisURL))
	return &RedisCache{client: client, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (model.History, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %v", ErrCache, key, err)
	}

	var h model.History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, false, fmt.Errorf("%w: decode %s: %v", ErrCache, key, err)
	}
	if h == nil {
		h = model.History{}
	}
	return h, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, history model.History) error {
	if history == nil {
		history = model.History{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrCache, key, err)
	}
	if err := c.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrCache, key, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	c.logger.Debug("closing redis connection")
	return c.client.Close()
}
