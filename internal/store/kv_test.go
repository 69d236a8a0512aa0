package store

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupKV(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisKV(client)
}

func TestRedisKV_GetMiss(t *testing.T) {
	_, kv := setupKV(t)

	_, err := kv.Get(context.Background(), "deleton:ride:current")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_SetWithTTL(t *testing.T) {
	mr, kv := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "deleton:ride:current", `{"ride_id":1}`, time.Minute))
	val, err := kv.Get(ctx, "deleton:ride:current")
	require.NoError(t, err)
	assert.Equal(t, `{"ride_id":1}`, val)

	mr.FastForward(2 * time.Minute)
	_, err = kv.Get(ctx, "deleton:ride:current")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisKV_SetNX(t *testing.T) {
	_, kv := setupKV(t)
	ctx := context.Background()

	ok, err := kv.SetNX(ctx, "deleton:alert:42", "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kv.SetNX(ctx, "deleton:alert:42", "1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisKV_ScanKeys(t *testing.T) {
	_, kv := setupKV(t)
	ctx := context.Background()

	for _, k := range []string{"deleton:alert:1", "deleton:alert:2", "other"} {
		require.NoError(t, kv.Set(ctx, k, "1", 0))
	}
	keys, err := kv.ScanKeys(ctx, "deleton:alert:*")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"deleton:alert:1", "deleton:alert:2"}, keys)
}

func TestRedisKV_Del(t *testing.T) {
	mr, kv := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "deleton:alert:42", "1", time.Hour))
	require.NoError(t, kv.Del(ctx, "deleton:alert:42", "deleton:alert:missing"))
	assert.False(t, mr.Exists("deleton:alert:42"))

	ok, err := kv.SetNX(ctx, "deleton:alert:42", "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}
