package model

import "time"

const (
	VerbFollowed  = "started following you"
	VerbLiked     = "liked your post"
	VerbCommented = "commented on your post"

	TargetPost = "post"
	TargetUser = "user"
)

// Notification 站内通知
type Notification struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RecipientID string    `json:"recipient_id" gorm:"type:varchar(36);not null;index:idx_notification_recipient_read,priority:1"`
	ActorID     string    `json:"actor_id" gorm:"type:varchar(36);not null"`
	Verb        string    `json:"verb" gorm:"type:varchar(255);not null"`
	TargetType  string    `json:"target_type,omitempty" gorm:"type:varchar(32)"`
	TargetID    string    `json:"target_id,omitempty" gorm:"type:varchar(36)"`
	Read        bool      `json:"read" gorm:"column:is_read;not null;default:false;index:idx_notification_recipient_read,priority:2"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
}

func (Notification) TableName() string { return "notifications" }
