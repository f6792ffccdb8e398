package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/relation-feed/internal/cache"
	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
	"github.com/d60-Lab/relation-feed/pkg/logger"
	"github.com/d60-Lab/relation-feed/pkg/metrics"
)

// FeedPage 时间线的一页
type FeedPage struct {
	Items    []model.PostWithStats `json:"items"`
	Page     int                   `json:"page,omitempty"`
	PageSize int                   `json:"page_size"`
	HasMore  bool                  `json:"has_more"`
	// NextCursor 为空表示没有更多
	NextCursor string `json:"next_cursor,omitempty"`
}

type FeedOptions struct {
	MaxPageSize int
	// 关注数超过该值时改用 follows 子查询
	MaxInClause int
}

// FeedService 按关注关系拉取时间线（读扩散）
type FeedService interface {
	BuildFeed(ctx context.Context, viewerID string, page, pageSize int) (*FeedPage, error)
	BuildFeedAfter(ctx context.Context, viewerID, cursor string, pageSize int) (*FeedPage, error)
}

type feedService struct {
	followRepo repository.FollowRepository
	postRepo   repository.PostRepository
	userRepo   repository.UserRepository
	stats      postStats
	index      cache.FollowingIndex
	opts       FeedOptions
}

func NewFeedService(followRepo repository.FollowRepository, postRepo repository.PostRepository, likeRepo repository.LikeRepository, commentRepo repository.CommentRepository, userRepo repository.UserRepository, index cache.FollowingIndex, opts FeedOptions) FeedService {
	if index == nil {
		index = cache.NopFollowingIndex{}
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 100
	}
	if opts.MaxInClause <= 0 {
		opts.MaxInClause = 500
	}
	return &feedService{
		followRepo: followRepo,
		postRepo:   postRepo,
		userRepo:   userRepo,
		stats:      postStats{likes: likeRepo, comments: commentRepo},
		index:      index,
		opts:       opts,
	}
}

func (s *feedService) BuildFeed(ctx context.Context, viewerID string, page, pageSize int) (*FeedPage, error) {
	start := time.Now()
	defer func() { metrics.FeedBuildDuration.WithLabelValues("page").Observe(time.Since(start).Seconds()) }()

	offset, limit, err := pageWindow(page, pageSize, s.opts.MaxPageSize)
	if err != nil {
		return nil, err
	}
	out, err := s.build(ctx, viewerID, repository.FeedQuery{Offset: offset, Limit: limit + 1})
	if err != nil {
		return nil, err
	}
	out.Page = page
	return out, nil
}

func (s *feedService) BuildFeedAfter(ctx context.Context, viewerID, cursor string, pageSize int) (*FeedPage, error) {
	start := time.Now()
	defer func() { metrics.FeedBuildDuration.WithLabelValues("cursor").Observe(time.Since(start).Seconds()) }()

	_, limit, err := pageWindow(1, pageSize, s.opts.MaxPageSize)
	if err != nil {
		return nil, err
	}
	q := repository.FeedQuery{Limit: limit + 1}
	if cursor != "" {
		c, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		q.After = c
	}
	return s.build(ctx, viewerID, q)
}

// build q.Limit 已包含用于判断 HasMore 的额外一行
func (s *feedService) build(ctx context.Context, viewerID string, q repository.FeedQuery) (*FeedPage, error) {
	pageSize := q.Limit - 1
	u, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("viewer %s: %w", viewerID, ErrNotFound)
	}

	following, err := s.following(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	out := &FeedPage{Items: []model.PostWithStats{}, PageSize: pageSize}
	if len(following) == 0 {
		return out, nil
	}
	if len(following) <= s.opts.MaxInClause {
		q.AuthorIDs = following
	} else {
		q.FollowerID = viewerID
	}

	posts, err := s.postRepo.ListFeed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list feed for %s: %w", viewerID, err)
	}
	if len(posts) > pageSize {
		out.HasMore = true
		posts = posts[:pageSize]
	}
	if out.HasMore && len(posts) > 0 {
		last := posts[len(posts)-1]
		out.NextCursor = EncodeCursor(repository.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	out.Items, err = s.stats.decorate(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// following 先读缓存索引，未命中再查库并回填；回填与关注变更竞争时由 Fill 放弃写入
func (s *feedService) following(ctx context.Context, viewerID string) ([]string, error) {
	ids, ok, err := s.index.Get(ctx, viewerID)
	if err != nil {
		logger.Warn("following index read failed", zap.String("user", viewerID), zap.Error(err))
	}
	if ok {
		metrics.FollowingIndexLookups.WithLabelValues("hit").Inc()
		return ids, nil
	}
	metrics.FollowingIndexLookups.WithLabelValues("miss").Inc()

	return s.index.Fill(ctx, viewerID, func(ctx context.Context) ([]string, error) {
		return s.followRepo.FollowingIDs(ctx, viewerID)
	})
}

// postStats 帖子列表的计数补充
type postStats struct {
	likes    repository.LikeRepository
	comments repository.CommentRepository
}

// decorate 补充点赞数、评论数与 viewer 的点赞状态
func (st postStats) decorate(ctx context.Context, viewerID string, posts []*model.Post) ([]model.PostWithStats, error) {
	out := make([]model.PostWithStats, len(posts))
	if len(posts) == 0 {
		return out, nil
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	likes, err := st.likes.CountByPosts(ctx, ids)
	if err != nil {
		return nil, err
	}
	liked, err := st.likes.LikedPostIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	comments, err := st.comments.CountByPosts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, p := range posts {
		out[i] = model.PostWithStats{Post: *p, LikesCount: likes[p.ID], CommentsCount: comments[p.ID], IsLiked: liked[p.ID]}
	}
	return out, nil
}

// EncodeCursor 将游标编码为 URL 安全的不透明字符串
func EncodeCursor(c repository.Cursor) string {
	c.CreatedAt = c.CreatedAt.UTC()
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

func DecodeCursor(s string) (*repository.Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrBadCursor
	}
	var c repository.Cursor
	if err := json.Unmarshal(data, &c); err != nil || c.ID == "" || c.CreatedAt.IsZero() {
		return nil, ErrBadCursor
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
