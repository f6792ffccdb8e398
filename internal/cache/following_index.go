package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/relation-feed/pkg/logger"
)

// FollowingIndex caches the set of user IDs a user follows. The feed uses it to scope
// its post query without hitting the follows table on every page.
type FollowingIndex interface {
	// Get reports ok=false on a cache miss.
	Get(ctx context.Context, userID string) (ids []string, ok bool, err error)
	Set(ctx context.Context, userID string, ids []string) error
	// Fill 未命中时调用 load 读库并回填。load 期间若发生 Invalidate，本次不写缓存，
	// 避免较早读到的旧集合覆盖新关注关系。仅 load 失败时返回 error。
	Fill(ctx context.Context, userID string, load func(context.Context) ([]string, error)) ([]string, error)
	Invalidate(ctx context.Context, userIDs ...string) error
}

// RedisFollowingIndex stores each index as a JSON array under following:index:<user>.
// An empty array is cached too, so users who follow nobody do not fall through.
// following:gen:<user> is bumped on every invalidation; Fill watches it.
type RedisFollowingIndex struct {
	client *redis.Client
	ttl    time.Duration

	hits    atomic.Int64
	misses  atomic.Int64
	skipped atomic.Int64
}

func NewRedisFollowingIndex(client *redis.Client, ttl time.Duration) *RedisFollowingIndex {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisFollowingIndex{client: client, ttl: ttl}
}

func indexKey(userID string) string { return fmt.Sprintf("following:index:%s", userID) }
func genKey(userID string) string { return fmt.Sprintf("following:gen:%s", userID) }

func encodeIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

func (c *RedisFollowingIndex) Get(ctx context.Context, userID string) ([]string, bool, error) {
	data, err := c.client.Get(ctx, indexKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		// corrupt entry counts as a miss; the caller will overwrite it
		c.misses.Add(1)
		return nil, false, nil
	}
	c.hits.Add(1)
	return ids, true, nil
}

func (c *RedisFollowingIndex) Set(ctx context.Context, userID string, ids []string) error {
	payload, err := encodeIDs(ids)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, indexKey(userID), payload, c.ttl).Err()
}

func (c *RedisFollowingIndex) Fill(ctx context.Context, userID string, load func(context.Context) ([]string, error)) ([]string, error) {
	var (
		ids     []string
		loaded  bool
		loadErr error
	)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		ids, loadErr = load(ctx)
		loaded = true
		if loadErr != nil {
			return loadErr
		}
		payload, err := encodeIDs(ids)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, indexKey(userID), payload, c.ttl)
			return nil
		})
		return err
	}, genKey(userID))

	switch {
	case loadErr != nil:
		return nil, loadErr
	case !loaded:
		// WATCH 本身失败（Redis 不可用），直接读库
		logger.Warn("following index fill failed", zap.String("user", userID), zap.Error(err))
		return load(ctx)
	case errors.Is(err, redis.TxFailedErr):
		c.skipped.Add(1)
	case err != nil:
		logger.Warn("following index write failed", zap.String("user", userID), zap.Error(err))
	}
	return ids, nil
}

func (c *RedisFollowingIndex) Invalidate(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Del(ctx, indexKey(id))
			pipe.Incr(ctx, genKey(id))
			pipe.Expire(ctx, genKey(id), c.ttl)
		}
		return nil
	})
	return err
}

// Stats returns hit/miss counters since creation.
func (c *RedisFollowingIndex) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Skipped counts fills dropped because an invalidation raced the store read.
func (c *RedisFollowingIndex) Skipped() int64 { return c.skipped.Load() }

// NopFollowingIndex always misses. Used when Redis is disabled.
type NopFollowingIndex struct{}

func (NopFollowingIndex) Get(context.Context, string) ([]string, bool, error) { return nil, false, nil }
func (NopFollowingIndex) Set(context.Context, string, []string) error { return nil }
func (NopFollowingIndex) Invalidate(context.Context, ...string) error { return nil }
func (NopFollowingIndex) Fill(ctx context.Context, _ string, load func(context.Context) ([]string, error)) ([]string, error) {
	return load(ctx)
}
