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

// relbench: N 个用户并发关注同一个大 V，统计关注写入、通知落库与列表查询延迟
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	followRepo := repository.NewFollowRepository(db)
	userRepo := repository.NewUserRepository(db)
	notifier := service.NewNotifier(repository.NewNotificationRepository(db), 100000)
	stop := notifier.Start(cfg.Notifier.Workers)
	relSvc := service.NewRelationshipService(followRepo, userRepo, nil, notifier, cfg.Feed.MaxPageSize)

	ctx := context.Background()
	N := envInt("N", 10000)
	CONC := envInt("CONC", 8)
	PAGE := envInt("PAGE", 50)

	celeb := model.User{ID: uuid.New().String(), Username: "celeb_" + strconv.FormatInt(time.Now().Unix(), 36), Password: "p"}
	celeb.Email = celeb.Username + "@example.com"
	must(0, db.Create(&celeb).Error)
	users := make([]model.User, N)
	for i := 0; i < N; i++ {
		id := uuid.New().String()
		users[i] = model.User{ID: id, Username: "u" + id[:12], Email: id[:12] + "@example.com", Password: "p"}
	}
	must(0, db.CreateInBatches(&users, 1000).Error)

	landing := make([]time.Duration, 0, N)
	quitLanding := make(chan struct{})
	doneLanding := make(chan struct{})
	go func() {
		defer close(doneLanding)
		for {
			select {
			case d := <-notifier.Metrics():
				landing = append(landing, d)
			case <-quitLanding:
				return
			}
		}
	}()

	maxQ := 0
	quitSample := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if q := notifier.QueueLen(); q > maxQ {
					maxQ = q
				}
			case <-quitSample:
				return
			}
		}
	}()

	feed := make(chan int, N)
	for i := 0; i < N; i++ {
		feed <- i
	}
	close(feed)
	lat := make(chan time.Duration, N)
	done := make(chan struct{}, CONC)
	t0 := time.Now()
	for w := 0; w < CONC; w++ {
		go func() {
			for i := range feed {
				st := time.Now()
				if _, err := relSvc.Follow(ctx, users[i].ID, celeb.ID); err != nil {
					fmt.Fprintf(os.Stderr, "follow: %v\n", err)
				}
				lat <- time.Since(st)
			}
			done <- struct{}{}
		}()
	}
	for w := 0; w < CONC; w++ {
		<-done
	}
	followDur := time.Since(t0)
	close(lat)
	close(quitSample)
	recs := make([]time.Duration, 0, N)
	for d := range lat {
		recs = append(recs, d)
	}

	drainStart := time.Now()
	_ = stop(ctx)
	drainDur := time.Since(drainStart)
	// 留一点时间读完最后的指标
	time.Sleep(100 * time.Millisecond)
	close(quitLanding)
	<-doneLanding

	q0 := time.Now()
	_, _ = relSvc.ListFollowers(ctx, celeb.ID, 1, PAGE)
	followersDur := time.Since(q0)
	q1 := time.Now()
	_, _ = relSvc.ListFollowing(ctx, users[0].ID, 1, PAGE)
	followingDur := time.Since(q1)
	q2 := time.Now()
	_, _ = relSvc.IsFollowing(ctx, users[N-1].ID, celeb.ID)
	existsDur := time.Since(q2)

	fmt.Printf("N=%d, CONC=%d, PAGE=%d\n", N, CONC, PAGE)
	fmt.Printf("Follow latency total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		followDur, followDur/time.Duration(N), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99))
	fmt.Printf("Notification landing: samples=%d, p50=%v, p95=%v, p99=%v, maxQueue=%d, drain=%v\n",
		len(landing), pct(landing, 0.50), pct(landing, 0.95), pct(landing, 0.99), maxQ, drainDur)
	fmt.Printf("Query followers(%d) latency: %v\n", PAGE, followersDur)
	fmt.Printf("Query following(%d) latency: %v\n", PAGE, followingDur)
	fmt.Printf("IsFollowing latency: %v\n", existsDur)
}
