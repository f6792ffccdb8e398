package model

import (
	"time"
)

// Follow 关注关系（A 关注 B），有向、不对称
type Follow struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FollowerID string `json:"follower_id" gorm:"type:varchar(36);not null;index:idx_follow_pair,unique,priority:1;index:idx_follow_follower,priority:1"`
	FolloweeID string `json:"followee_id" gorm:"type:varchar(36);not null;index:idx_follow_pair,unique,priority:2;index:idx_follow_followee,priority:1"`
	// 复合唯一键，避免重复关注
	// idx_follow_pair = (follower_id, followee_id)
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_follow_follower,priority:2;index:idx_follow_followee,priority:2"`
}

func (Follow) TableName() string { return "follows" }
