package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T, ttl time.Duration) (*RedisFollowingIndex, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFollowingIndex(client, ttl), mr
}

func TestRedisFollowingIndex_MissSetHit(t *testing.T) {
	idx, _ := newIndex(t, time.Minute)
	ctx := context.Background()

	_, ok, err := idx.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idx.Set(ctx, "u1", []string{"a", "b"}))
	ids, ok, err := idx.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids)

	hits, misses := idx.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestRedisFollowingIndex_EmptySetIsCached(t *testing.T) {
	idx, _ := newIndex(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, idx.Set(ctx, "lonely", nil))
	ids, ok, err := idx.Get(ctx, "lonely")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, ids)
}

func TestRedisFollowingIndex_TTLAndInvalidate(t *testing.T) {
	idx, mr := newIndex(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, idx.Set(ctx, "u1", []string{"a"}))
	require.NoError(t, idx.Set(ctx, "u2", []string{"b"}))
	assert.Equal(t, time.Minute, mr.TTL(indexKey("u1")))

	require.NoError(t, idx.Invalidate(ctx, "u1"))
	_, ok, err := idx.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	_, ok, err = idx.Get(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisFollowingIndex_CorruptEntryIsMiss(t *testing.T) {
	idx, mr := newIndex(t, time.Minute)
	require.NoError(t, mr.Set(indexKey("u1"), "not-json"))

	_, ok, err := idx.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisFollowingIndex_FillCachesLoad(t *testing.T) {
	idx, mr := newIndex(t, time.Minute)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}
	ids, err := idx.Fill(ctx, "u1", load)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, 1, calls)
	assert.Equal(t, time.Minute, mr.TTL(indexKey("u1")))

	ids, ok, err := idx.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Zero(t, idx.Skipped())
}

func TestRedisFollowingIndex_FillSkipsWhenInvalidatedDuringLoad(t *testing.T) {
	idx, mr := newIndex(t, time.Minute)
	ctx := context.Background()

	// 读库返回旧集合的同时，关注变更完成并使索引失效
	ids, err := idx.Fill(ctx, "u1", func(ctx context.Context) ([]string, error) {
		require.NoError(t, idx.Invalidate(ctx, "u1"))
		return []string{"stale"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, ids)
	assert.False(t, mr.Exists(indexKey("u1")))
	assert.Equal(t, int64(1), idx.Skipped())

	// 下一次回填不再受影响
	_, err = idx.Fill(ctx, "u1", func(context.Context) ([]string, error) { return []string{"fresh"}, nil })
	require.NoError(t, err)
	got, ok, err := idx.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"fresh"}, got)
}

func TestRedisFollowingIndex_FillLoadError(t *testing.T) {
	idx, mr := newIndex(t, time.Minute)
	boom := errors.New("db down")

	_, err := idx.Fill(context.Background(), "u1", func(context.Context) ([]string, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(indexKey("u1")))
}

func TestRedisFollowingIndex_FillWithoutRedis(t *testing.T) {
	idx, mr := newIndex(t, time.Minute)
	mr.Close()

	ids, err := idx.Fill(context.Background(), "u1", func(context.Context) ([]string, error) { return []string{"a"}, nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}
