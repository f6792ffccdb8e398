package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/relation-feed/internal/model"
)

// Cursor 时间线游标，对应排序键 (created_at DESC, id DESC) 上的最后一行
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

// FeedQuery 时间线查询条件
type FeedQuery struct {
	// AuthorIDs 非空时直接按作者列表限定
	AuthorIDs []string
	// FollowerID 在 AuthorIDs 为空时生效：按 follows 子查询限定作者
	FollowerID string
	After      *Cursor
	Offset     int
	Limit      int
}

// PostFilter 帖子列表筛选；Query 按空白拆词，每个词需出现在标题或正文中（不区分大小写）
type PostFilter struct {
	AuthorID string
	Query    string
}

type PostRepository interface {
	GetByID(ctx context.Context, id string) (*model.Post, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	List(ctx context.Context, f PostFilter, offset, limit int) ([]*model.Post, error)
	ListFeed(ctx context.Context, q FeedQuery) ([]*model.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

// GetByID 不存在时返回 (nil, nil)
func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Updates(fields).Error
}

func (r *postRepository) List(ctx context.Context, f PostFilter, offset, limit int) ([]*model.Post, error) {
	tx := r.db.WithContext(ctx).Model(&model.Post{})
	if f.AuthorID != "" {
		tx = tx.Where("author_id = ?", f.AuthorID)
	}
	for _, term := range strings.Fields(f.Query) {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
		tx = tx.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	var res []*model.Post
	err := tx.Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

// likeEscaper 转义 LIKE 通配符，搜索词按字面匹配
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (r *postRepository) ListFeed(ctx context.Context, q FeedQuery) ([]*model.Post, error) {
	tx := r.db.WithContext(ctx).Model(&model.Post{})
	switch {
	case len(q.AuthorIDs) > 0:
		tx = tx.Where("author_id IN ?", q.AuthorIDs)
	case q.FollowerID != "":
		sub := r.db.Model(&model.Follow{}).Select("followee_id").Where("follower_id = ?", q.FollowerID)
		tx = tx.Where("author_id IN (?)", sub)
	default:
		return []*model.Post{}, nil
	}
	if c := q.After; c != nil {
		// seek：严格小于游标行，保证并发插入时不跳行、不重复
		tx = tx.Where("(created_at < ? OR (created_at = ? AND id < ?))", c.CreatedAt, c.CreatedAt, c.ID)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	var res []*model.Post
	err := tx.Order("created_at DESC, id DESC").Limit(q.Limit).Find(&res).Error
	return res, err
}
