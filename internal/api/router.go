package api

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/relation-feed/config"
	_ "github.com/d60-Lab/relation-feed/docs"
	"github.com/d60-Lab/relation-feed/internal/api/handler"
	"github.com/d60-Lab/relation-feed/internal/api/middleware"
	"github.com/d60-Lab/relation-feed/pkg/response"
)

type RouterOptions struct {
	ServiceName string
	Tokens      middleware.TokenParser
	RateLimit   config.RateLimitConfig
	// Sentry 已初始化时挂载 sentrygin
	Sentry bool
	// Health 检查依赖是否可用，nil 表示总是健康
	Health func(ctx context.Context) error
}

func NewRouter(h *handler.Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	r.Use(otelgin.Middleware(opts.ServiceName))
	r.Use(middleware.Metrics(), middleware.RequestLogger())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.GET("/health", func(c *gin.Context) {
		if opts.Health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Health(ctx); err != nil {
				response.JSON(c, http.StatusServiceUnavailable, "unhealthy", gin.H{"error": err.Error()})
				return
			}
		}
		response.Success(c, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	if opts.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(middleware.NewIPRateLimiter(opts.RateLimit.RPS, opts.RateLimit.Burst)))
	}
	auth := middleware.Auth(opts.Tokens)
	optional := middleware.OptionalAuth(opts.Tokens)

	{
		g := v1.Group("/auth")
		g.POST("/register", h.Register)
		g.POST("/login", h.Login)
	}
	{
		g := v1.Group("/users", optional)
		g.GET("/:user_id", h.GetProfile)
		g.GET("/:user_id/posts", h.ListUserPosts)
	}
	{
		g := v1.Group("/relations")
		g.POST("/:user_id/follow", auth, h.Follow)
		g.POST("/:user_id/unfollow", auth, h.Unfollow)
		g.GET("/:user_id/following", h.ListFollowing)
		g.GET("/:user_id/followers", h.ListFollowers)
	}
	v1.GET("/feed", auth, h.Feed)
	{
		g := v1.Group("/posts")
		g.GET("", optional, h.ListPosts)
		g.POST("", auth, h.CreatePost)
		g.GET("/:post_id", optional, h.GetPost)
		g.PUT("/:post_id", auth, h.UpdatePost)
		g.DELETE("/:post_id", auth, h.DeletePost)
		g.POST("/:post_id/like", auth, h.Like)
		g.POST("/:post_id/unlike", auth, h.Unlike)
		g.GET("/:post_id/likes", h.ListLikes)
		g.POST("/:post_id/comments", auth, h.CreateComment)
		g.GET("/:post_id/comments", h.ListComments)
	}
	{
		g := v1.Group("/comments")
		g.GET("/:comment_id", h.GetComment)
		g.PUT("/:comment_id", auth, h.UpdateComment)
		g.DELETE("/:comment_id", auth, h.DeleteComment)
	}
	{
		g := v1.Group("/notifications", auth)
		g.GET("", h.ListNotifications)
		g.GET("/unread", h.ListUnread)
		g.GET("/count", h.UnreadCount)
		g.POST("/read-all", h.MarkAllRead)
		g.POST("/:id/read", h.MarkRead)
	}
	return r
}
