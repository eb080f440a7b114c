package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ray-remotestate/preorder/models"
)

const defaultTTL = 5 * time.Minute

func NewRedisMenuCache(client *redis.Client, baseTTL time.Duration) *RedisMenuCache {
	if baseTTL <= 0 {
		baseTTL = defaultTTL
	}
	return &RedisMenuCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisMenuCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisMenuCache) GetDaily(ctx context.Context, date string) ([]models.MenuItem, error) {
	data, err := r.client.Get(ctx, dailyKey(date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var items []models.MenuItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal menu failed: %w", err)
	}
	return items, nil
}

func (r *RedisMenuCache) SetDaily(ctx context.Context, date string, items []models.MenuItem) error {
	if items == nil {
		items = []models.MenuItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal menu failed: %w", err)
	}

	// jitter spreads expiry of dates cached together
	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/5) + 1))
	if err := r.client.Set(ctx, dailyKey(date), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisMenuCache) InvalidateDaily(ctx context.Context, dates ...string) error {
	if len(dates) == 0 {
		return nil
	}
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = dailyKey(d)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func dailyKey(date string) string {
	return fmt.Sprintf("menu:daily:%s", date)
}
