package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/relation-feed/config"
	"github.com/d60-Lab/relation-feed/internal/cache"
	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
	"github.com/d60-Lab/relation-feed/internal/service"
	rediscache "github.com/d60-Lab/relation-feed/pkg/cache"
	"github.com/d60-Lab/relation-feed/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

type request struct {
	viewer string
	page   int
}

type result struct {
	name     string
	total    time.Duration
	lat      []time.Duration
	hits     int64
	misses   int64
	hasStats bool
}

// cachebench: 对比关注集合索引走 Redis 与直接查库两种情况下的 feed 构建延迟
func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	VIEWERS := envInt("VIEWERS", 50)
	FOLLOWS := envInt("FOLLOWS", 300)
	AUTHORS := envInt("AUTHORS", 2000)
	POSTS := envInt("POSTS", 5)
	REQUESTS := envInt("REQUESTS", 5000)
	SIZE := cfg.Feed.DefaultPageSize

	fmt.Println("Setting up test data...")
	authors := make([]model.User, AUTHORS)
	for i := range authors {
		id := uuid.NewString()
		authors[i] = model.User{ID: id, Username: "a" + id[:12], Email: id[:12] + "@example.com", Password: "p"}
	}
	mustDo(db.CreateInBatches(&authors, 1000).Error)
	viewers := make([]model.User, VIEWERS)
	for i := range viewers {
		id := uuid.NewString()
		viewers[i] = model.User{ID: id, Username: "v" + id[:12], Email: "v" + id[:12] + "@example.com", Password: "p"}
	}
	mustDo(db.CreateInBatches(&viewers, 1000).Error)

	base := time.Now().UTC().Add(-time.Duration(AUTHORS*POSTS) * time.Second)
	posts := make([]model.Post, 0, AUTHORS*POSTS)
	for i, a := range authors {
		for j := 0; j < POSTS; j++ {
			ts := base.Add(time.Duration(i*POSTS+j) * time.Second)
			posts = append(posts, model.Post{ID: uuid.NewString(), AuthorID: a.ID, Title: "p", CreatedAt: ts, UpdatedAt: ts})
		}
	}
	mustDo(db.CreateInBatches(&posts, 1000).Error)

	rng := rand.New(rand.NewSource(42))
	follows := make([]model.Follow, 0, VIEWERS*FOLLOWS)
	for _, v := range viewers {
		for _, idx := range rng.Perm(AUTHORS)[:min(FOLLOWS, AUTHORS)] {
			follows = append(follows, model.Follow{ID: uuid.NewString(), FollowerID: v.ID, FolloweeID: authors[idx].ID, CreatedAt: time.Now().UTC()})
		}
	}
	mustDo(db.CreateInBatches(&follows, 1000).Error)

	reqs := make([]request, REQUESTS)
	for i := range reqs {
		// 大多数请求落在第一页
		page := 1
		if r := rng.Float64(); r > 0.8 {
			page = 2 + rng.Intn(3)
		}
		reqs[i] = request{viewer: viewers[rng.Intn(VIEWERS)].ID, page: page}
	}

	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	userRepo := repository.NewUserRepository(db)
	opts := service.FeedOptions{MaxPageSize: cfg.Feed.MaxPageSize, MaxInClause: cfg.Feed.MaxInClause}

	run := func(name string, index cache.FollowingIndex) result {
		svc := service.NewFeedService(followRepo, postRepo, likeRepo, commentRepo, userRepo, index, opts)
		res := result{name: name, lat: make([]time.Duration, 0, len(reqs))}
		t0 := time.Now()
		for _, r := range reqs {
			st := time.Now()
			must(svc.BuildFeed(ctx, r.viewer, r.page, SIZE))
			res.lat = append(res.lat, time.Since(st))
		}
		res.total = time.Since(t0)
		if ri, ok := index.(*cache.RedisFollowingIndex); ok {
			res.hits, res.misses = ri.Stats()
			res.hasStats = true
		}
		return res
	}

	results := []result{run("db-only", cache.NopFollowingIndex{})}
	cfg.Redis.Enabled = true
	rdb, err := rediscache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		fmt.Printf("redis unavailable (%v), skipping cached run\n", err)
	} else {
		defer rdb.Close()
		ids := make([]string, len(viewers))
		for i, v := range viewers {
			ids[i] = v.ID
		}
		index := cache.NewRedisFollowingIndex(rdb, cfg.Redis.TTL)
		mustDo(index.Invalidate(ctx, ids...))
		results = append(results, run("redis-index", index))
	}

	fmt.Printf("VIEWERS=%d FOLLOWS=%d AUTHORS=%d POSTS=%d REQUESTS=%d SIZE=%d\n", VIEWERS, FOLLOWS, AUTHORS, POSTS, REQUESTS, SIZE)
	for _, r := range results {
		fmt.Printf("%-12s total=%v avg=%v p50=%v p95=%v p99=%v", r.name, r.total, r.total/time.Duration(len(r.lat)),
			pct(r.lat, 0.50), pct(r.lat, 0.95), pct(r.lat, 0.99))
		if r.hasStats {
			fmt.Printf(" hits=%d misses=%d hit_ratio=%.2f", r.hits, r.misses, float64(r.hits)/float64(max(r.hits+r.misses, 1)))
		}
		fmt.Println()
	}
}
