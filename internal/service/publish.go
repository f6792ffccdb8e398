package service

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/relation-feed/internal/model"
)

// PostEvent 外发到 Kafka 的帖子事件
type PostEvent struct {
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Publisher 负责事务内写 posts + outbox
type Publisher struct{ db *gorm.DB }

func NewPublisher(db *gorm.DB) *Publisher { return &Publisher{db: db} }

func newOutbox(eventType string, ev PostEvent, now time.Time) (*model.Outbox, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &model.Outbox{
		ID:          model.NewID(),
		EventType:   eventType,
		AggregateID: ev.PostID,
		Payload:     payload,
		Status:      model.OutboxPending,
		CreatedAt:   now,
	}, nil
}

// Publish 在一个事务内落地 Post 与 Outbox 事件
func (p *Publisher) Publish(ctx context.Context, authorID, title, content string) (*model.Post, error) {
	now := time.Now().UTC()
	post := &model.Post{ID: model.NewID(), AuthorID: authorID, Title: title, Content: content, CreatedAt: now, UpdatedAt: now}
	out, err := newOutbox(model.EventPostCreated, PostEvent{PostID: post.ID, AuthorID: authorID, Title: title, CreatedAt: now}, now)
	if err != nil {
		return nil, err
	}
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return tx.Create(out).Error
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Retract 在一个事务内删除帖子及其点赞、评论，并写入删除事件；帖子不存在时返回 false
func (p *Publisher) Retract(ctx context.Context, post *model.Post) (bool, error) {
	now := time.Now().UTC()
	out, err := newOutbox(model.EventPostDeleted, PostEvent{PostID: post.ID, AuthorID: post.AuthorID, CreatedAt: post.CreatedAt}, now)
	if err != nil {
		return false, err
	}
	var removed bool
	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", post.ID).Delete(&model.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Create(out).Error
	})
	return removed, err
}
