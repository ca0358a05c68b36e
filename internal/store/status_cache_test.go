package store

import (
	"context"
	"testing"
	"time"

	"jobcenter/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *StatusCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewStatusCache(NewRedisKV(client), 30*time.Second, zap.NewNop())

	return mr, cache
}

func TestStatusCache_SetThenGet(t *testing.T) {
	_, cache := setupTestCache(t)
	ctx := context.Background()

	cache.SetStatus(ctx, 42, domain.StatusInProcess)

	status, ok := cache.GetStatus(ctx, 42)
	require.True(t, ok)
	assert.Equal(t, domain.StatusInProcess, status)
}

func TestStatusCache_MissReturnsFalse(t *testing.T) {
	_, cache := setupTestCache(t)

	_, ok := cache.GetStatus(context.Background(), 404)
	assert.False(t, ok)
}

func TestStatusCache_KeyAndTTL(t *testing.T) {
	mr, cache := setupTestCache(t)
	ctx := context.Background()

	cache.SetStatus(ctx, 42, domain.StatusPaused)

	val, err := mr.Get("jobcenter:operation:42:status")
	require.NoError(t, err)
	assert.Equal(t, "6", val)

	// TTL 到期后未命中，回退直读 DB
	mr.FastForward(31 * time.Second)
	_, ok := cache.GetStatus(ctx, 42)
	assert.False(t, ok)
}

func TestStatusCache_CorruptValueTreatedAsMiss(t *testing.T) {
	mr, cache := setupTestCache(t)

	require.NoError(t, mr.Set("jobcenter:operation:42:status", "not-a-number"))

	_, ok := cache.GetStatus(context.Background(), 42)
	assert.False(t, ok)
}

func TestStatusCache_RedisDownDegrades(t *testing.T) {
	mr, cache := setupTestCache(t)
	ctx := context.Background()

	mr.Close()

	// 读写都不 panic、不报错给调用方
	cache.SetStatus(ctx, 42, domain.StatusSetup)
	_, ok := cache.GetStatus(ctx, 42)
	assert.False(t, ok)
}
