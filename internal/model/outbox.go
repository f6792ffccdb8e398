package model

import "time"

const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
	OutboxFailed     = "failed"

	EventPostCreated = "post.created"
	EventPostDeleted = "post.deleted"
)

// Outbox 事件外发盒：与业务写入同事务落地，由 relay 投递到 Kafka
type Outbox struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)"`
	EventType   string     `gorm:"type:varchar(64);not null"`
	AggregateID string     `gorm:"type:varchar(36);index"`
	Payload     []byte     `gorm:"not null"`
	Status      string     `gorm:"type:varchar(16);index:idx_outbox_status_created,priority:1"` // pending, processing, done, failed
	Attempts    int        `gorm:"not null;default:0"`
	LastError   string     `gorm:"type:text"`
	CreatedAt   time.Time  `gorm:"index:idx_outbox_status_created,priority:2"`
	ProcessedAt *time.Time
}

func (Outbox) TableName() string { return "outbox" }
