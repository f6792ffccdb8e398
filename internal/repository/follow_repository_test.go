package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/testutil"
)

func TestFollowRepository_CreateIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	u := testutil.SeedUsers(t, db, 2)

	created, err := repo.Create(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.False(t, created)

	var cnt int64
	require.NoError(t, db.Model(&model.Follow{}).Count(&cnt).Error)
	assert.Equal(t, int64(1), cnt)

	// 反向关注是另一条边
	created, err = repo.Create(ctx, u[1], u[0])
	require.NoError(t, err)
	assert.True(t, created)
}

func TestFollowRepository_ConcurrentCreate(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	u := testutil.SeedUsers(t, db, 2)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Create(ctx, u[0], u[1])
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestFollowRepository_Delete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	u := testutil.SeedUsers(t, db, 2)

	removed, err := repo.Delete(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = repo.Create(ctx, u[0], u[1])
	require.NoError(t, err)
	removed, err = repo.Delete(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.True(t, removed)

	exists, err := repo.Exists(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFollowRepository_ListAndCount(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	u := testutil.SeedUsers(t, db, 5)

	// u0 依次关注 u1..u4；u2,u3 关注 u0
	for _, id := range u[1:] {
		_, err := repo.Create(ctx, u[0], id)
		require.NoError(t, err)
	}
	for _, id := range u[2:4] {
		_, err := repo.Create(ctx, id, u[0])
		require.NoError(t, err)
	}

	ids, err := repo.FollowingIDs(ctx, u[0])
	require.NoError(t, err)
	assert.Equal(t, u[1:], ids)

	page, err := repo.ListFollowings(ctx, u[0], 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, u[3], page[0].FolloweeID)
	assert.Equal(t, u[4], page[1].FolloweeID)

	fans, err := repo.ListFollowers(ctx, u[0], 0, 10)
	require.NoError(t, err)
	require.Len(t, fans, 2)
	assert.ElementsMatch(t, u[2:4], []string{fans[0].FollowerID, fans[1].FollowerID})

	n, err := repo.CountFollowings(ctx, u[0])
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	n, err = repo.CountFollowers(ctx, u[0])
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestFollowRepository_SameTimestampKeepsInsertionOrder(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()
	u := testutil.SeedUsers(t, db, 21)
	celeb, fans := u[0], u[1:]

	for _, id := range fans {
		created, err := repo.Create(ctx, id, celeb)
		require.NoError(t, err)
		require.True(t, created)
	}
	// 同一时间戳内写入的关注边，只能靠 id 区分先后
	tick := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&model.Follow{}).Where("followee_id = ?", celeb).Update("created_at", tick).Error)

	var got []string
	for page := 0; page < 3; page++ {
		items, err := repo.ListFollowers(ctx, celeb, page*8, 8)
		require.NoError(t, err)
		for _, it := range items {
			got = append(got, it.FollowerID)
		}
	}
	assert.Equal(t, fans, got)

	for _, id := range fans {
		_, err := repo.Create(ctx, celeb, id)
		require.NoError(t, err)
	}
	require.NoError(t, db.Model(&model.Follow{}).Where("follower_id = ?", celeb).Update("created_at", tick).Error)
	ids, err := repo.FollowingIDs(ctx, celeb)
	require.NoError(t, err)
	assert.Equal(t, fans, ids)
}
