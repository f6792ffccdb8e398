package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/relation-feed/config"
	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
	"github.com/d60-Lab/relation-feed/internal/service"
	"github.com/d60-Lab/relation-feed/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
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

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

// feedbench: 一个读者关注 AUTHORS 个作者，每人 POSTS 条帖子；比较页码翻页与游标翻页的延迟
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	followRepo := repository.NewFollowRepository(db)
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	publisher := service.NewPublisher(db)

	AUTHORS := envInt("AUTHORS", 200)
	POSTS := envInt("POSTS", 50)
	PAGES := envInt("PAGES", 20)
	SIZE := envInt("SIZE", cfg.Feed.DefaultPageSize)
	ctx := context.Background()

	viewer := model.User{ID: uuid.New().String(), Password: "p"}
	viewer.Username = "viewer_" + viewer.ID[:8]
	viewer.Email = viewer.Username + "@example.com"
	must(0, db.Create(&viewer).Error)
	authors := make([]model.User, AUTHORS)
	for i := range authors {
		id := uuid.New().String()
		authors[i] = model.User{ID: id, Username: "a" + id[:12], Email: id[:12] + "@example.com", Password: "p"}
	}
	must(0, db.CreateInBatches(&authors, 1000).Error)
	for _, a := range authors {
		must(followRepo.Create(ctx, viewer.ID, a.ID))
	}

	pubDurations := make([]time.Duration, 0, AUTHORS*POSTS)
	for i := 0; i < POSTS; i++ {
		for _, a := range authors {
			st := time.Now()
			must(publisher.Publish(ctx, a.ID, fmt.Sprintf("hello %d", i), ""))
			pubDurations = append(pubDurations, time.Since(st))
		}
	}

	feedSvc := service.NewFeedService(followRepo, postRepo, likeRepo, commentRepo, userRepo, nil, service.FeedOptions{
		MaxPageSize: cfg.Feed.MaxPageSize,
		MaxInClause: cfg.Feed.MaxInClause,
	})

	byPage := make([]time.Duration, 0, PAGES)
	for p := 1; p <= PAGES; p++ {
		st := time.Now()
		must(feedSvc.BuildFeed(ctx, viewer.ID, p, SIZE))
		byPage = append(byPage, time.Since(st))
	}

	byCursor := make([]time.Duration, 0, PAGES)
	cursor := ""
	for p := 1; p <= PAGES; p++ {
		st := time.Now()
		page := must(feedSvc.BuildFeedAfter(ctx, viewer.ID, cursor, SIZE))
		byCursor = append(byCursor, time.Since(st))
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	fmt.Printf("AUTHORS=%d POSTS=%d PAGES=%d SIZE=%d MAX_IN=%d\n", AUTHORS, POSTS, PAGES, SIZE, cfg.Feed.MaxInClause)
	fmt.Printf("Publish tx latency: avg=%v p95=%v p99=%v\n", avg(pubDurations), pct(pubDurations, 0.95), pct(pubDurations, 0.99))
	fmt.Printf("Feed by page:   avg=%v p95=%v first=%v last=%v\n", avg(byPage), pct(byPage, 0.95), byPage[0], byPage[len(byPage)-1])
	fmt.Printf("Feed by cursor: avg=%v p95=%v first=%v last=%v\n", avg(byCursor), pct(byCursor, 0.95), byCursor[0], byCursor[len(byCursor)-1])
}
