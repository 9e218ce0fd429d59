// Package cache stores crawl results in Redis keyed by the requested limit.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/tender-crawler/internal/metrics"
	"github.com/JakeFAU/tender-crawler/internal/tender"
)

// ErrCacheMiss is returned by Get when no fresh entry exists.
var ErrCacheMiss = errors.New("cache miss")

// Config controls the Redis connection and entry lifetime.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisCache is a result cache backed by a single Redis client.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis dials Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg Config) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("cache.redis_addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, cfg.TTL, cfg.Prefix)
}

// NewWithClient wraps an existing client (primarily for testing).
func NewWithClient(client *redis.Client, ttl time.Duration, prefix string) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be > 0")
	}
	if prefix == "" {
		prefix = "tenders"
	}
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}, nil
}

// Key returns the Redis key for a limit.
func (c *RedisCache) Key(limit int) string {
	return fmt.Sprintf("%s:limit:%d", c.prefix, limit)
}

// Get returns the cached records for limit or ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, limit int) ([]tender.Record, error) {
	data, err := c.client.Get(ctx, c.Key(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveCacheLookup("miss")
		return nil, ErrCacheMiss
	}
	if err != nil {
		metrics.ObserveCacheLookup("error")
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var records []tender.Record
	if err := json.Unmarshal(data, &records); err != nil {
		metrics.ObserveCacheLookup("error")
		return nil, fmt.Errorf("decode cached records: %w", err)
	}
	metrics.ObserveCacheLookup("hit")
	return records, nil
}

// Set stores records for limit with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, limit int, records []tender.Record) error {
	if records == nil {
		records = []tender.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := c.client.Set(ctx, c.Key(limit), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}
