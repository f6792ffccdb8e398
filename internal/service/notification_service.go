package service

import (
	"context"
	"fmt"

	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
)

type NotificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	repo        repository.NotificationRepository
	maxPageSize int
}

func NewNotificationService(repo repository.NotificationRepository, maxPageSize int) NotificationService {
	return &notificationService{repo: repo, maxPageSize: maxPageSize}
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]*model.Notification, error) {
	offset, limit, err := pageWindow(page, pageSize, s.maxPageSize)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByRecipient(ctx, userID, unreadOnly, offset, limit)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead 通知不存在或不属于该用户时返回 ErrNotFound
func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	hit, err := s.repo.MarkRead(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if !hit {
		return fmt.Errorf("notification %s: %w", notificationID, ErrNotFound)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
