package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/relation-feed/internal/cache"
	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/repository"
	"github.com/d60-Lab/relation-feed/internal/testutil"
)

// fixture 在内存库上装配全部服务
type fixture struct {
	db        *gorm.DB
	follows   repository.FollowRepository
	posts     repository.PostRepository
	likes     repository.LikeRepository
	comments  repository.CommentRepository
	users     repository.UserRepository
	notes     repository.NotificationRepository
	notifier  *Notifier
	relations RelationshipService
	feed      FeedService
}

func newFixture(t *testing.T, index cache.FollowingIndex, opts FeedOptions) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:       db,
		follows:  repository.NewFollowRepository(db),
		posts:    repository.NewPostRepository(db),
		likes:    repository.NewLikeRepository(db),
		comments: repository.NewCommentRepository(db),
		users:    repository.NewUserRepository(db),
		notes:    repository.NewNotificationRepository(db),
	}
	f.notifier = NewNotifier(f.notes, 128)
	f.relations = NewRelationshipService(f.follows, f.users, index, f.notifier, 100)
	f.feed = NewFeedService(f.follows, f.posts, f.likes, f.comments, f.users, index, opts)
	return f
}

// flush 启动并立即停止 notifier，把队列里的通知全部落库
func (f *fixture) flush(t *testing.T) {
	t.Helper()
	stop := f.notifier.Start(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		t.Fatalf("flush notifier: %v", err)
	}
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testNotification(actor, recipient string) model.Notification {
	return model.Notification{
		ID:          uuid.New().String(),
		RecipientID: recipient,
		ActorID:     actor,
		Verb:        model.VerbFollowed,
		TargetType:  model.TargetUser,
		TargetID:    actor,
	}
}
