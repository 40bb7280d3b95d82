package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/discovery/internal/config"
)

const defaultCountTTL = time.Hour

type RedisCache struct {
	Client   *redis.Client
	countTTL time.Duration
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return NewFromClient(redis.NewClient(opts), cfg.Redis.CountTTL)
}

// NewFromClient wraps an existing client. ttl <= 0 means one hour.
func NewFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultCountTTL
	}
	return &RedisCache{Client: client, countTTL: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForLikeCount generates Redis key for a user's received-like count
func KeyForLikeCount(userID string) string {
	return "likes:count:" + userID
}

// UpdateLikeCount stores the count and refreshes its TTL.
func (c *RedisCache) UpdateLikeCount(ctx context.Context, userID string, count int64) error {
	return c.Client.Set(ctx, KeyForLikeCount(userID), count, c.countTTL).Err()
}

// GetLikeCount returns the cached count. hit=false on a cache miss.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID string) (count int64, hit bool, err error) {
	key := KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, c.countTTL).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// InvalidateLikeCount drops the cached count so the next read goes to the store.
func (c *RedisCache) InvalidateLikeCount(ctx context.Context, userID string) error {
	return c.Client.Del(ctx, KeyForLikeCount(userID)).Err()
}
