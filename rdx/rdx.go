// Package rdx wraps the redis client used for short-lived caches: issued
// auth tokens and the recommendations payload. Everything here is
// best-effort; a cache miss or redis outage never fails a request.
package rdx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	conn *redis.Client
}

func New(addr string) *Cache {
	return &Cache{
		conn: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (c *Cache) Close() error {
	return c.conn.Close()
}

// --- token cache ---

func tokenKey(userID string) string { return "token:" + userID }

func (c *Cache) SetToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	return c.conn.Set(ctx, tokenKey(userID), token, ttl).Err()
}

func (c *Cache) DelToken(ctx context.Context, userID string) error {
	return c.conn.Del(ctx, tokenKey(userID)).Err()
}

// --- JSON value cache ---

func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.conn.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.conn.Set(ctx, key, raw, ttl).Err()
}
