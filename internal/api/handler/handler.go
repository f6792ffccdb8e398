package handler

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/relation-feed/internal/service"
)

// Services handler 依赖的全部服务
type Services struct {
	Auth          service.AuthService
	Users         service.UserService
	Relations     service.RelationshipService
	Feed          service.FeedService
	Posts         service.PostService
	Likes         service.LikeService
	Comments      service.CommentService
	Notifications service.NotificationService
}

type Handler struct {
	authService     service.AuthService
	userService     service.UserService
	relService      service.RelationshipService
	feedService     service.FeedService
	postService     service.PostService
	likeService     service.LikeService
	commentService  service.CommentService
	notifService    service.NotificationService
	defaultPageSize int
}

func NewHandler(s Services, defaultPageSize int) *Handler {
	if defaultPageSize <= 0 {
		defaultPageSize = 10
	}
	return &Handler{
		authService:     s.Auth,
		userService:     s.Users,
		relService:      s.Relations,
		feedService:     s.Feed,
		postService:     s.Posts,
		likeService:     s.Likes,
		commentService:  s.Comments,
		notifService:    s.Notifications,
		defaultPageSize: defaultPageSize,
	}
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
	}
}

// pageQuery 解析 page / page_size；非数字时报错，数值范围由 service 校验
func (h *Handler) pageQuery(c *gin.Context) (int, int, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: page must be an integer", service.ErrInvalidArgument)
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.defaultPageSize)))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: page_size must be an integer", service.ErrInvalidArgument)
	}
	return page, pageSize, nil
}
