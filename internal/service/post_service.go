package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
)

// PostUpdate 为 nil 的字段不修改
type PostUpdate struct {
	Title   *string
	Content *string
}

type PostService interface {
	Create(ctx context.Context, authorID, title, content string) (*model.Post, error)
	Get(ctx context.Context, postID, viewerID string) (*model.PostWithStats, error)
	Update(ctx context.Context, actorID, postID string, upd PostUpdate) (*model.Post, error)
	Delete(ctx context.Context, actorID, postID string) error
	ListByAuthor(ctx context.Context, authorID, viewerID string, page, pageSize int) ([]model.PostWithStats, error)
	// List 全站帖子，可按作者与关键词筛选（关键词匹配标题或正文）
	List(ctx context.Context, f repository.PostFilter, viewerID string, page, pageSize int) ([]model.PostWithStats, error)
}

type postService struct {
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	stats       postStats
	publisher   *Publisher
	maxPageSize int
}

func NewPostService(postRepo repository.PostRepository, likeRepo repository.LikeRepository, commentRepo repository.CommentRepository, userRepo repository.UserRepository, publisher *Publisher, maxPageSize int) PostService {
	return &postService{
		postRepo:    postRepo,
		userRepo:    userRepo,
		stats:       postStats{likes: likeRepo, comments: commentRepo},
		publisher:   publisher,
		maxPageSize: maxPageSize,
	}
}

func (s *postService) Create(ctx context.Context, authorID, title, content string) (*model.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	u, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("author %s: %w", authorID, ErrNotFound)
	}
	post, err := s.publisher.Publish(ctx, authorID, title, content)
	if err != nil {
		return nil, fmt.Errorf("publish post: %w", err)
	}
	return post, nil
}

func (s *postService) mustGet(ctx context.Context, postID string) (*model.Post, error) {
	p, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return p, nil
}

func (s *postService) Get(ctx context.Context, postID, viewerID string) (*model.PostWithStats, error) {
	p, err := s.mustGet(ctx, postID)
	if err != nil {
		return nil, err
	}
	items, err := s.stats.decorate(ctx, viewerID, []*model.Post{p})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Update 仅作者本人可修改
func (s *postService) Update(ctx context.Context, actorID, postID string, upd PostUpdate) (*model.Post, error) {
	p, err := s.mustGet(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != actorID {
		return nil, ErrPermissionDenied
	}
	fields := map[string]any{}
	if upd.Title != nil {
		t := strings.TrimSpace(*upd.Title)
		if t == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidArgument)
		}
		fields["title"] = t
	}
	if upd.Content != nil {
		fields["content"] = *upd.Content
	}
	if err := s.postRepo.Update(ctx, postID, fields); err != nil {
		return nil, err
	}
	return s.mustGet(ctx, postID)
}

func (s *postService) Delete(ctx context.Context, actorID, postID string) error {
	p, err := s.mustGet(ctx, postID)
	if err != nil {
		return err
	}
	if p.AuthorID != actorID {
		return ErrPermissionDenied
	}
	removed, err := s.publisher.Retract(ctx, p)
	if err != nil {
		return err
	}
	if !removed {
		// 并发删除
		return fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return nil
}

func (s *postService) ListByAuthor(ctx context.Context, authorID, viewerID string, page, pageSize int) ([]model.PostWithStats, error) {
	return s.List(ctx, repository.PostFilter{AuthorID: authorID}, viewerID, page, pageSize)
}

// List 指定了作者时作者必须存在，否则 ErrNotFound
func (s *postService) List(ctx context.Context, f repository.PostFilter, viewerID string, page, pageSize int) ([]model.PostWithStats, error) {
	offset, limit, err := pageWindow(page, pageSize, s.maxPageSize)
	if err != nil {
		return nil, err
	}
	if f.AuthorID != "" {
		u, err := s.userRepo.GetByID(ctx, f.AuthorID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, fmt.Errorf("author %s: %w", f.AuthorID, ErrNotFound)
		}
	}
	f.Query = strings.TrimSpace(f.Query)
	posts, err := s.postRepo.List(ctx, f, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.stats.decorate(ctx, viewerID, posts)
}
