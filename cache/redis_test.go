package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray-remotestate/preorder/models"
)

// setupTestRedis creates a miniredis server and returns a RedisMenuCache on it
func setupTestRedis(t *testing.T) (*RedisMenuCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisMenuCache(client, 10*time.Minute)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func TestSetThenGet(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	items := []models.MenuItem{{
		ID:         uuid.New(),
		VendorID:   uuid.New(),
		VendorName: "Annapoorna",
		Name:       "Filter Coffee",
		Price:      models.Money(1250),
		Date:       "2026-03-14",
	}}

	require.NoError(t, cache.SetDaily(ctx, "2026-03-14", items))
	assert.True(t, mr.Exists("menu:daily:2026-03-14"))

	ttl := mr.TTL("menu:daily:2026-03-14")
	assert.GreaterOrEqual(t, ttl, 10*time.Minute)
	assert.LessOrEqual(t, ttl, 12*time.Minute)

	got, err := cache.GetDaily(ctx, "2026-03-14")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, items[0].ID, got[0].ID)
	assert.Equal(t, "Annapoorna", got[0].VendorName)
	assert.Equal(t, models.Money(1250), got[0].Price)
}

func TestGetDaily_Miss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := cache.GetDaily(context.Background(), "2026-03-15")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestGetDaily_EmptyMenuIsAHit(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, cache.SetDaily(ctx, "2026-03-16", nil))
	got, err := cache.GetDaily(ctx, "2026-03-16")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetDaily_InvalidJSON(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Set(dailyKey("2026-03-14"), "{not json")
	_, err := cache.GetDaily(context.Background(), "2026-03-14")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestInvalidateDaily(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, cache.SetDaily(ctx, "2026-03-14", []models.MenuItem{}))
	require.NoError(t, cache.SetDaily(ctx, "2026-03-15", []models.MenuItem{}))

	require.NoError(t, cache.InvalidateDaily(ctx, "2026-03-14", "2026-03-15"))
	assert.False(t, mr.Exists(dailyKey("2026-03-14")))
	assert.False(t, mr.Exists(dailyKey("2026-03-15")))

	assert.NoError(t, cache.InvalidateDaily(ctx))
}

func TestGetDaily_ConnectionError(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Close()
	_, err := cache.GetDaily(context.Background(), "2026-03-14")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNopCache(t *testing.T) {
	var c MenuCache = NopCache{}
	_, err := c.GetDaily(context.Background(), "2026-03-14")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.SetDaily(context.Background(), "2026-03-14", nil))
	assert.NoError(t, c.InvalidateDaily(context.Background(), "2026-03-14"))
}
