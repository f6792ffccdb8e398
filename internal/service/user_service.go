package service

import (
	"context"
	"fmt"

	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
)

type UserService interface {
	// Profile viewerID 为空时 IsFollowing 恒为 false
	Profile(ctx context.Context, userID, viewerID string) (*model.UserProfile, error)
}

type userService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

func NewUserService(userRepo repository.UserRepository, followRepo repository.FollowRepository) UserService {
	return &userService{userRepo: userRepo, followRepo: followRepo}
}

func (s *userService) Profile(ctx context.Context, userID, viewerID string) (*model.UserProfile, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	p := &model.UserProfile{User: *u}
	if p.FollowersCount, err = s.followRepo.CountFollowers(ctx, userID); err != nil {
		return nil, err
	}
	if p.FollowingCount, err = s.followRepo.CountFollowings(ctx, userID); err != nil {
		return nil, err
	}
	if viewerID != "" && viewerID != userID {
		if p.IsFollowing, err = s.followRepo.Exists(ctx, viewerID, userID); err != nil {
			return nil, err
		}
	}
	return p, nil
}
