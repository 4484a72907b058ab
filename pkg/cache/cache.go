package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL constants
const (
	TTLConversations = 1 * time.Minute
	TTLDirectory     = 5 * time.Minute
	TTLDefault       = 5 * time.Minute
)

// Key prefixes
const (
	PrefixConversations = "conversations:"
	PrefixDirectory     = "directory:"
)

// ErrMiss is returned by Get when the key is absent or Redis is unavailable
var ErrMiss = errors.New("cache miss")

// Service is a JSON cache backed by Redis
type Service interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	GetConversations(ctx context.Context, userID string, dest interface{}) error
	SetConversations(ctx context.Context, userID string, data interface{}) error
	InvalidateConversations(ctx context.Context, userIDs ...string) error

	IsAvailable() bool
}

type redisCache struct {
	client *redis.Client
}

// NewService creates a cache service. A nil client yields a no-op cache.
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

// IsAvailable reports whether a Redis client is configured
func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

// Get reads a JSON value into dest
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrMiss
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set writes value as JSON
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = TTLDefault
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes keys
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *redisCache) GetConversations(ctx context.Context, userID string, dest interface{}) error {
	return c.Get(ctx, PrefixConversations+userID, dest)
}

func (c *redisCache) SetConversations(ctx context.Context, userID string, data interface{}) error {
	return c.Set(ctx, PrefixConversations+userID, data, TTLConversations)
}

func (c *redisCache) InvalidateConversations(ctx context.Context, userIDs ...string) error {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, PrefixConversations+id)
	}
	return c.Delete(ctx, keys...)
}
