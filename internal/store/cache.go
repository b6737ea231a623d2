package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/youruser/fabricview/internal/config"
)

const previewPrefix = "preview:"

// PreviewCache holds encoded preview images by input hash. Get reports a miss
// as (nil, nil).
type PreviewCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

type RedisPreviewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPreviewCache(cfg *config.RedisConfig) *RedisPreviewCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisPreviewCache{client: client, ttl: cfg.TTL}
}

func (c *RedisPreviewCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisPreviewCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, previewPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (c *RedisPreviewCache) Set(ctx context.Context, key string, data []byte) error {
	return c.client.Set(ctx, previewPrefix+key, data, c.ttl).Err()
}

func (c *RedisPreviewCache) Close() error {
	return c.client.Close()
}

// NopPreviewCache never stores anything.
type NopPreviewCache struct{}

func (NopPreviewCache) Get(context.Context, string) ([]byte, error) { return nil, nil }

func (NopPreviewCache) Set(context.Context, string, []byte) error { return nil }
