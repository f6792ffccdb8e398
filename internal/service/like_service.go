package service

import (
	"context"
	"fmt"

	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
)

type LikeService interface {
	// Like 重复点赞返回 false
	Like(ctx context.Context, userID, postID string) (bool, error)
	Unlike(ctx context.Context, userID, postID string) (bool, error)
	ListLikes(ctx context.Context, postID string, page, pageSize int) ([]*model.Like, error)
}

type likeService struct {
	likeRepo    repository.LikeRepository
	postRepo    repository.PostRepository
	notifier    *Notifier
	maxPageSize int
}

func NewLikeService(likeRepo repository.LikeRepository, postRepo repository.PostRepository, notifier *Notifier, maxPageSize int) LikeService {
	return &likeService{likeRepo: likeRepo, postRepo: postRepo, notifier: notifier, maxPageSize: maxPageSize}
}

func (s *likeService) post(ctx context.Context, postID string) (*model.Post, error) {
	p, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("post %s: %w", postID, ErrNotFound)
	}
	return p, nil
}

func (s *likeService) Like(ctx context.Context, userID, postID string) (bool, error) {
	p, err := s.post(ctx, postID)
	if err != nil {
		return false, err
	}
	created, err := s.likeRepo.Create(ctx, userID, postID)
	if err != nil {
		return false, fmt.Errorf("like %s: %w", postID, err)
	}
	// 给自己点赞不通知
	if created && p.AuthorID != userID && s.notifier != nil {
		s.notifier.Enqueue(model.Notification{
			ID:          model.NewID(),
			RecipientID: p.AuthorID,
			ActorID:     userID,
			Verb:        model.VerbLiked,
			TargetType:  model.TargetPost,
			TargetID:    p.ID,
		})
	}
	return created, nil
}

func (s *likeService) Unlike(ctx context.Context, userID, postID string) (bool, error) {
	if _, err := s.post(ctx, postID); err != nil {
		return false, err
	}
	return s.likeRepo.Delete(ctx, userID, postID)
}

func (s *likeService) ListLikes(ctx context.Context, postID string, page, pageSize int) ([]*model.Like, error) {
	offset, limit, err := pageWindow(page, pageSize, s.maxPageSize)
	if err != nil {
		return nil, err
	}
	if _, err := s.post(ctx, postID); err != nil {
		return nil, err
	}
	return s.likeRepo.ListByPost(ctx, postID, offset, limit)
}
