package service

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/relation-feed/internal/cache"
	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
	"github.com/d60-Lab/relation-feed/internal/testutil"
)

func postIDs(items []model.PostWithStats) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFeed_EmptyWhenFollowingNobody(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{})
	u := testutil.SeedUsers(t, f.db, 2)
	testutil.SeedPost(t, f.db, u[1], "unrelated", baseTime)
	testutil.SeedPost(t, f.db, u[0], "mine", baseTime)

	page, err := f.feed.BuildFeed(context.Background(), u[0], 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
}

func TestFeed_NewestFirstAcrossAuthors(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{})
	ctx := context.Background()
	u := testutil.SeedUsers(t, f.db, 4)
	a, b, c, d := u[0], u[1], u[2], u[3]

	_, err := f.relations.Follow(ctx, a, b)
	require.NoError(t, err)
	_, err = f.relations.Follow(ctx, a, c)
	require.NoError(t, err)

	p1 := testutil.SeedPost(t, f.db, b, "p1", baseTime)
	p2 := testutil.SeedPost(t, f.db, c, "p2", baseTime.Add(time.Minute))
	testutil.SeedPost(t, f.db, d, "p3", baseTime.Add(2*time.Minute))
	testutil.SeedPost(t, f.db, a, "own", baseTime.Add(3*time.Minute))

	page, err := f.feed.BuildFeed(ctx, a, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{p2.ID, p1.ID}, postIDs(page.Items))
	assert.False(t, page.HasMore)
}

func TestFeed_UnfollowDropsAuthor(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{})
	ctx := context.Background()
	u := testutil.SeedUsers(t, f.db, 2)
	testutil.SeedPost(t, f.db, u[1], "p", baseTime)

	_, err := f.relations.Follow(ctx, u[0], u[1])
	require.NoError(t, err)
	page, err := f.feed.BuildFeed(ctx, u[0], 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	_, err = f.relations.Unfollow(ctx, u[0], u[1])
	require.NoError(t, err)
	page, err = f.feed.BuildFeed(ctx, u[0], 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

// seedFeed viewer 关注一个作者，作者发 n 条帖子；sameTime 为 true 时全部使用同一时间戳
func seedFeed(t *testing.T, f *fixture, n int, sameTime bool) (viewer string, all map[string]bool) {
	t.Helper()
	u := testutil.SeedUsers(t, f.db, 2)
	_, err := f.relations.Follow(context.Background(), u[0], u[1])
	require.NoError(t, err)
	all = make(map[string]bool, n)
	for i := 0; i < n; i++ {
		ts := baseTime
		if !sameTime {
			ts = baseTime.Add(time.Duration(i) * time.Second)
		}
		p := testutil.SeedPost(t, f.db, u[1], fmt.Sprintf("p%02d", i), ts)
		all[p.ID] = true
	}
	return u[0], all
}

func TestFeed_PageNumbers(t *testing.T) {
	for _, sameTime := range []bool{false, true} {
		t.Run(fmt.Sprintf("same_time=%v", sameTime), func(t *testing.T) {
			f := newFixture(t, nil, FeedOptions{})
			viewer, all := seedFeed(t, f, 25, sameTime)
			ctx := context.Background()

			seen := map[string]bool{}
			sizes := []int{}
			var prev *model.PostWithStats
			for page := 1; page <= 3; page++ {
				p, err := f.feed.BuildFeed(ctx, viewer, page, 10)
				require.NoError(t, err)
				sizes = append(sizes, len(p.Items))
				assert.Equal(t, page < 3, p.HasMore)
				for i := range p.Items {
					it := p.Items[i]
					assert.False(t, seen[it.ID], "duplicate %s", it.ID)
					seen[it.ID] = true
					if prev != nil {
						assert.False(t, it.CreatedAt.After(prev.CreatedAt))
					}
					prev = &p.Items[i]
				}
			}
			assert.Equal(t, []int{10, 10, 5}, sizes)
			assert.Equal(t, all, seen)

			p, err := f.feed.BuildFeed(ctx, viewer, 4, 10)
			require.NoError(t, err)
			assert.Empty(t, p.Items)
		})
	}
}

func TestFeed_Cursor(t *testing.T) {
	for _, sameTime := range []bool{false, true} {
		t.Run(fmt.Sprintf("same_time=%v", sameTime), func(t *testing.T) {
			f := newFixture(t, nil, FeedOptions{})
			viewer, all := seedFeed(t, f, 25, sameTime)
			ctx := context.Background()

			seen := map[string]bool{}
			sizes := []int{}
			cursor := ""
			for {
				p, err := f.feed.BuildFeedAfter(ctx, viewer, cursor, 10)
				require.NoError(t, err)
				sizes = append(sizes, len(p.Items))
				for _, it := range p.Items {
					assert.False(t, seen[it.ID], "duplicate %s", it.ID)
					seen[it.ID] = true
				}
				if !p.HasMore {
					assert.Empty(t, p.NextCursor)
					break
				}
				require.NotEmpty(t, p.NextCursor)
				cursor = p.NextCursor
			}
			assert.Equal(t, []int{10, 10, 5}, sizes)
			assert.Equal(t, all, seen)
		})
	}
}

func TestFeed_CursorStableUnderInserts(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{})
	viewer, _ := seedFeed(t, f, 12, false)
	ctx := context.Background()

	first, err := f.feed.BuildFeedAfter(ctx, viewer, "", 5)
	require.NoError(t, err)

	// 翻页期间新帖不影响后续页
	authors, err := f.follows.FollowingIDs(ctx, viewer)
	require.NoError(t, err)
	require.Len(t, authors, 1)
	testutil.SeedPost(t, f.db, authors[0], "fresh", baseTime.Add(time.Hour))

	second, err := f.feed.BuildFeedAfter(ctx, viewer, first.NextCursor, 5)
	require.NoError(t, err)
	require.Len(t, second.Items, 5)
	last := first.Items[len(first.Items)-1]
	for _, it := range second.Items {
		assert.True(t, it.CreatedAt.Before(last.CreatedAt))
	}
}

func TestFeed_SubqueryForLargeFollowSets(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{MaxInClause: 2})
	ctx := context.Background()
	u := testutil.SeedUsers(t, f.db, 5)
	want := make([]string, 0, 4)
	for i, id := range u[1:] {
		_, err := f.relations.Follow(ctx, u[0], id)
		require.NoError(t, err)
		p := testutil.SeedPost(t, f.db, id, "p", baseTime.Add(time.Duration(i)*time.Minute))
		want = append([]string{p.ID}, want...)
	}

	page, err := f.feed.BuildFeed(ctx, u[0], 1, 10)
	require.NoError(t, err)
	assert.Equal(t, want, postIDs(page.Items))
}

func TestFeed_Errors(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{MaxPageSize: 20})
	ctx := context.Background()
	u := testutil.SeedUsers(t, f.db, 1)

	_, err := f.feed.BuildFeed(ctx, uuid.New().String(), 1, 10)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.feed.BuildFeed(ctx, u[0], 0, 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.feed.BuildFeed(ctx, u[0], 1, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.feed.BuildFeedAfter(ctx, u[0], "not-a-cursor!", 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	page, err := f.feed.BuildFeed(ctx, u[0], 1, 500)
	require.NoError(t, err)
	assert.Equal(t, 20, page.PageSize)
}

func TestFeed_HugePageIsRejected(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{})
	ctx := context.Background()
	u := testutil.SeedUsers(t, f.db, 2)
	_, err := f.relations.Follow(ctx, u[0], u[1])
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		testutil.SeedPost(t, f.db, u[1], fmt.Sprintf("p%d", i), baseTime.Add(time.Duration(i)*time.Second))
	}

	// (page-1)*pageSize 溢出时不能退化成第一页
	_, err = f.feed.BuildFeed(ctx, u[0], math.MaxInt/10+2, 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.relations.ListFollowing(ctx, u[0], math.MaxInt/10+2, 10)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	page, err := f.feed.BuildFeed(ctx, u[0], 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestFeed_LikeStats(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{})
	ctx := context.Background()
	u := testutil.SeedUsers(t, f.db, 3)
	_, err := f.relations.Follow(ctx, u[0], u[1])
	require.NoError(t, err)
	p := testutil.SeedPost(t, f.db, u[1], "p", baseTime)
	_, err = f.likes.Create(ctx, u[0], p.ID)
	require.NoError(t, err)
	_, err = f.likes.Create(ctx, u[2], p.ID)
	require.NoError(t, err)

	page, err := f.feed.BuildFeed(ctx, u[0], 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Items[0].LikesCount)
	assert.True(t, page.Items[0].IsLiked)
}

func TestFeed_FollowingIndexCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	index := cache.NewRedisFollowingIndex(client, time.Minute)

	f := newFixture(t, index, FeedOptions{})
	ctx := context.Background()
	u := testutil.SeedUsers(t, f.db, 3)
	_, err := f.relations.Follow(ctx, u[0], u[1])
	require.NoError(t, err)
	testutil.SeedPost(t, f.db, u[1], "b", baseTime)
	pc := testutil.SeedPost(t, f.db, u[2], "c", baseTime.Add(time.Minute))

	page, err := f.feed.BuildFeed(ctx, u[0], 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.True(t, mr.Exists("following:index:"+u[0]))

	_, err = f.feed.BuildFeed(ctx, u[0], 1, 10)
	require.NoError(t, err)
	hits, _ := index.Stats()
	assert.Equal(t, int64(1), hits)

	// 关注后索引失效，新作者立即可见
	_, err = f.relations.Follow(ctx, u[0], u[2])
	require.NoError(t, err)
	assert.False(t, mr.Exists("following:index:"+u[0]))
	page, err = f.feed.BuildFeed(ctx, u[0], 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, pc.ID, page.Items[0].ID)
}

// slowFollows 在 FollowingIDs 读完之后、回填缓存之前执行 hook
type slowFollows struct {
	repository.FollowRepository
	hook func()
}

func (r slowFollows) FollowingIDs(ctx context.Context, followerID string) ([]string, error) {
	ids, err := r.FollowRepository.FollowingIDs(ctx, followerID)
	if r.hook != nil {
		r.hook()
	}
	return ids, err
}

func TestFeed_FollowDuringIndexFillIsNotMasked(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	index := cache.NewRedisFollowingIndex(client, time.Minute)

	f := newFixture(t, index, FeedOptions{})
	ctx := context.Background()
	u := testutil.SeedUsers(t, f.db, 3)
	_, err := f.relations.Follow(ctx, u[0], u[1])
	require.NoError(t, err)
	testutil.SeedPost(t, f.db, u[1], "b", baseTime)
	pc := testutil.SeedPost(t, f.db, u[2], "c", baseTime.Add(time.Minute))

	once := false
	follows := slowFollows{FollowRepository: f.follows, hook: func() {
		if once {
			return
		}
		once = true
		_, err := f.relations.Follow(ctx, u[0], u[2])
		require.NoError(t, err)
	}}
	feed := NewFeedService(follows, f.posts, f.likes, f.comments, f.users, index, FeedOptions{})

	// 这一次读到的是关注 u[2] 之前的集合
	page, err := feed.BuildFeed(ctx, u[0], 1, 10)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, mr.Exists("following:index:"+u[0]))
	assert.Equal(t, int64(1), index.Skipped())

	page, err = feed.BuildFeed(ctx, u[0], 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, pc.ID, page.Items[0].ID)
}

func TestCursorCodec(t *testing.T) {
	c := repository.Cursor{CreatedAt: baseTime.In(time.FixedZone("X", 3600)), ID: "abc"}
	got, err := DecodeCursor(EncodeCursor(c))
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)
	assert.True(t, got.CreatedAt.Equal(baseTime))
	assert.Equal(t, time.UTC, got.CreatedAt.Location())

	for _, bad := range []string{"", "%%%", "e30"} {
		_, err := DecodeCursor(bad)
		assert.ErrorIs(t, err, ErrInvalidArgument, bad)
	}
}
