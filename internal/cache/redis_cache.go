package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"dukapos/internal/domain"
)

type RedisAlertsCache struct {
	client *redis.Client
}

func NewRedisAlertsCache(addr string, password string, db int) *RedisAlertsCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisAlertsCache{client: client}
}

func (c *RedisAlertsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisAlertsCache) Close() error {
	return c.client.Close()
}

func (c *RedisAlertsCache) Get(ctx context.Context, key string) (*domain.CreditAlerts, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var alerts domain.CreditAlerts
	if err := json.Unmarshal([]byte(val), &alerts); err != nil {
		return nil, false, err
	}
	return &alerts, true, nil
}

func (c *RedisAlertsCache) Set(ctx context.Context, key string, value *domain.CreditAlerts, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisAlertsCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
