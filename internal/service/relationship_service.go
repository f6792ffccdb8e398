package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/relation-feed/internal/cache"
	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
	"github.com/d60-Lab/relation-feed/pkg/logger"
	"github.com/d60-Lab/relation-feed/pkg/metrics"
)

// RelationshipService 关系链服务
type RelationshipService interface {
	// Follow 返回是否新建了关注边；已关注时返回 false 且不报错
	Follow(ctx context.Context, fromUserID, toUserID string) (bool, error)
	// Unfollow 返回是否确实删除了关注边
	Unfollow(ctx context.Context, fromUserID, toUserID string) (bool, error)
	IsFollowing(ctx context.Context, fromUserID, toUserID string) (bool, error)
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	Counts(ctx context.Context, userID string) (followers, following int64, err error)
}

type relationshipService struct {
	followRepo  repository.FollowRepository
	userRepo    repository.UserRepository
	index       cache.FollowingIndex
	notifier    *Notifier
	maxPageSize int
}

func NewRelationshipService(followRepo repository.FollowRepository, userRepo repository.UserRepository, index cache.FollowingIndex, notifier *Notifier, maxPageSize int) RelationshipService {
	if index == nil {
		index = cache.NopFollowingIndex{}
	}
	return &relationshipService{followRepo: followRepo, userRepo: userRepo, index: index, notifier: notifier, maxPageSize: maxPageSize}
}

// ensureUsers 所有 ID 都必须存在，否则 ErrNotFound
func (s *relationshipService) ensureUsers(ctx context.Context, ids ...string) error {
	uniq := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		uniq[id] = struct{}{}
	}
	n, err := s.userRepo.CountExisting(ctx, ids...)
	if err != nil {
		return err
	}
	if n != int64(len(uniq)) {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}

func (s *relationshipService) Follow(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	if fromUserID == toUserID {
		return false, ErrFollowSelf
	}
	if err := s.ensureUsers(ctx, fromUserID, toUserID); err != nil {
		return false, err
	}
	created, err := s.followRepo.Create(ctx, fromUserID, toUserID)
	if err != nil {
		metrics.RelationOps.WithLabelValues("follow", "error").Inc()
		return false, fmt.Errorf("follow %s -> %s: %w", fromUserID, toUserID, err)
	}
	if !created {
		metrics.RelationOps.WithLabelValues("follow", "exists").Inc()
		return false, nil
	}
	metrics.RelationOps.WithLabelValues("follow", "created").Inc()

	s.invalidate(ctx, fromUserID)
	if s.notifier != nil {
		s.notifier.Enqueue(model.Notification{
			ID:          model.NewID(),
			RecipientID: toUserID,
			ActorID:     fromUserID,
			Verb:        model.VerbFollowed,
			TargetType:  model.TargetUser,
			TargetID:    fromUserID,
		})
	}
	return true, nil
}

func (s *relationshipService) Unfollow(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	if err := s.ensureUsers(ctx, fromUserID, toUserID); err != nil {
		return false, err
	}
	removed, err := s.followRepo.Delete(ctx, fromUserID, toUserID)
	if err != nil {
		metrics.RelationOps.WithLabelValues("unfollow", "error").Inc()
		return false, fmt.Errorf("unfollow %s -> %s: %w", fromUserID, toUserID, err)
	}
	if !removed {
		metrics.RelationOps.WithLabelValues("unfollow", "missing").Inc()
		return false, nil
	}
	metrics.RelationOps.WithLabelValues("unfollow", "removed").Inc()
	s.invalidate(ctx, fromUserID)
	return true, nil
}

// invalidate 缓存失效失败只记录日志：索引有 TTL，最多短暂读到旧的关注集合
func (s *relationshipService) invalidate(ctx context.Context, userID string) {
	if err := s.index.Invalidate(ctx, userID); err != nil {
		logger.Warn("invalidate following index failed", zap.String("user", userID), zap.Error(err))
	}
}

func (s *relationshipService) IsFollowing(ctx context.Context, fromUserID, toUserID string) (bool, error) {
	if fromUserID == "" || toUserID == "" || fromUserID == toUserID {
		return false, nil
	}
	return s.followRepo.Exists(ctx, fromUserID, toUserID)
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	offset, limit, err := pageWindow(page, pageSize, s.maxPageSize)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUsers(ctx, userID); err != nil {
		return nil, err
	}
	items, err := s.followRepo.ListFollowings(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, nil
}

func (s *relationshipService) ListFollowers(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	offset, limit, err := pageWindow(page, pageSize, s.maxPageSize)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUsers(ctx, userID); err != nil {
		return nil, err
	}
	items, err := s.followRepo.ListFollowers(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FollowerID
	}
	return res, nil
}

func (s *relationshipService) Counts(ctx context.Context, userID string) (int64, int64, error) {
	followers, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	following, err := s.followRepo.CountFollowings(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return followers, following, nil
}
