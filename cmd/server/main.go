package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/d60-Lab/relation-feed/config"
	"github.com/d60-Lab/relation-feed/internal/api"
	"github.com/d60-Lab/relation-feed/internal/api/handler"
	"github.com/d60-Lab/relation-feed/internal/cache"
	"github.com/d60-Lab/relation-feed/internal/repository"
	"github.com/d60-Lab/relation-feed/internal/service"
	"github.com/d60-Lab/relation-feed/pkg/broker"
	rediscache "github.com/d60-Lab/relation-feed/pkg/cache"
	"github.com/d60-Lab/relation-feed/pkg/database"
	"github.com/d60-Lab/relation-feed/pkg/logger"
	"github.com/d60-Lab/relation-feed/pkg/telemetry"
)

// @title Relation Feed API
// @version 1.0
// @description 关注关系与关注流服务
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	var index cache.FollowingIndex = cache.NopFollowingIndex{}
	if cfg.Redis.Enabled {
		rdb, err := rediscache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			// Redis 不可用时降级为直接查库
			logger.Warn("redis unavailable, following index disabled", zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			index = cache.NewRedisFollowingIndex(rdb, cfg.Redis.TTL)
		}
	}

	followRepo := repository.NewFollowRepository(db)
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	notifier := service.NewNotifier(notifRepo, cfg.Notifier.QueueSize)
	maxPage := cfg.Feed.MaxPageSize
	authSvc := service.NewAuthService(userRepo, cfg.JWT)
	h := handler.NewHandler(handler.Services{
		Auth:      authSvc,
		Users:     service.NewUserService(userRepo, followRepo),
		Relations: service.NewRelationshipService(followRepo, userRepo, index, notifier, maxPage),
		Feed: service.NewFeedService(followRepo, postRepo, likeRepo, commentRepo, userRepo, index, service.FeedOptions{
			MaxPageSize: maxPage,
			MaxInClause: cfg.Feed.MaxInClause,
		}),
		Posts:         service.NewPostService(postRepo, likeRepo, commentRepo, userRepo, service.NewPublisher(db), maxPage),
		Likes:         service.NewLikeService(likeRepo, postRepo, notifier, maxPage),
		Comments:      service.NewCommentService(commentRepo, postRepo, notifier, maxPage),
		Notifications: service.NewNotificationService(notifRepo, maxPage),
	}, cfg.Feed.DefaultPageSize)

	router := api.NewRouter(h, api.RouterOptions{
		ServiceName: cfg.Telemetry.ServiceName,
		Tokens:      authSvc,
		RateLimit:   cfg.RateLimit,
		Sentry:      cfg.Telemetry.SentryDSN != "",
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	stopNotifier := notifier.Start(cfg.Notifier.Workers)
	stopRelay := func(context.Context) error { return nil }
	if cfg.Relay.Enabled {
		pub := broker.NewKafkaPublisher(broker.NewKafkaWriter(cfg.Kafka), cfg.Kafka)
		defer func() { _ = pub.Close() }()
		rc := cfg.Relay
		stopRelay = service.NewRelay(db, pub, rc.Workers, rc.ClaimLimit, rc.MaxAttempts, rc.PollInterval).Start()
		logger.Info("outbox relay started", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		// 先停止接收请求，再排空通知队列与 relay
		var errs []error
		errs = append(errs, srv.Shutdown(sctx))
		errs = append(errs, stopRelay(sctx))
		errs = append(errs, stopNotifier(sctx))
		errs = append(errs, shutdownTelemetry(sctx))
		return errors.Join(errs...)
	})
	return g.Wait()
}
