package model

import "time"

// Post 内容主体；作者创建后不可变更
type Post struct {
	ID       string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID string `json:"author_id" gorm:"type:varchar(36);not null;index:idx_post_author_created,priority:1"`
	Title    string `json:"title" gorm:"type:varchar(255);not null"`
	Content  string `json:"content" gorm:"type:text"`
	// 时间线排序键：(created_at DESC, id DESC)
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_post_author_created,priority:2;index:idx_post_created"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Post) TableName() string { return "posts" }

// PostWithStats 带点赞数、评论数与当前用户点赞状态的帖子
type PostWithStats struct {
	Post
	LikesCount    int64 `json:"likes_count"`
	CommentsCount int64 `json:"comments_count"`
	IsLiked       bool  `json:"is_liked"`
}
