package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
)

const maxCommentLength = 5000

type CommentService interface {
	Create(ctx context.Context, authorID, postID, content string) (*model.Comment, error)
	Get(ctx context.Context, commentID string) (*model.Comment, error)
	// Update / Delete 仅评论作者本人可操作
	Update(ctx context.Context, actorID, commentID, content string) (*model.Comment, error)
	Delete(ctx context.Context, actorID, commentID string) error
	ListByPost(ctx context.Context, postID string, page, pageSize int) ([]*model.Comment, error)
}

type commentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	notifier    *Notifier
	maxPageSize int
}

func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository, notifier *Notifier, maxPageSize int) CommentService {
	return &commentService{commentRepo: commentRepo, postRepo: postRepo, notifier: notifier, maxPageSize: maxPageSize}
}

func normalizeComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: content is required", ErrInvalidArgument)
	}
	if len([]rune(content)) > maxCommentLength {
		return "", fmt.Errorf("%w: content exceeds %d characters", ErrInvalidArgument, maxCommentLength)
	}
	return content, nil
}

func (s *commentService) post(ctx context.Context, postID string) (*model.Post, error) {
	p, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return p, nil
}

func (s *commentService) Create(ctx context.Context, authorID, postID, content string) (*model.Comment, error) {
	content, err := normalizeComment(content)
	if err != nil {
		return nil, err
	}
	p, err := s.post(ctx, postID)
	if err != nil {
		return nil, err
	}
	c := &model.Comment{ID: model.NewID(), PostID: p.ID, AuthorID: authorID, Content: content}
	if err := s.commentRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("comment on %s: %w", postID, err)
	}
	if p.AuthorID != authorID && s.notifier != nil {
		s.notifier.Enqueue(model.Notification{
			ID:          model.NewID(),
			RecipientID: p.AuthorID,
			ActorID:     authorID,
			Verb:        model.VerbCommented,
			TargetType:  model.TargetPost,
			TargetID:    p.ID,
		})
	}
	return c, nil
}

func (s *commentService) Get(ctx context.Context, commentID string) (*model.Comment, error) {
	c, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	return c, nil
}

func (s *commentService) Update(ctx context.Context, actorID, commentID, content string) (*model.Comment, error) {
	c, err := s.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.AuthorID != actorID {
		return nil, ErrPermissionDenied
	}
	content, err = normalizeComment(content)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.UpdateContent(ctx, commentID, content); err != nil {
		return nil, err
	}
	return s.Get(ctx, commentID)
}

func (s *commentService) Delete(ctx context.Context, actorID, commentID string) error {
	c, err := s.Get(ctx, commentID)
	if err != nil {
		return err
	}
	if c.AuthorID != actorID {
		return ErrPermissionDenied
	}
	removed, err := s.commentRepo.Delete(ctx, commentID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	return nil
}

func (s *commentService) ListByPost(ctx context.Context, postID string, page, pageSize int) ([]*model.Comment, error) {
	offset, limit, err := pageWindow(page, pageSize, s.maxPageSize)
	if err != nil {
		return nil, err
	}
	if _, err := s.post(ctx, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID, offset, limit)
}
