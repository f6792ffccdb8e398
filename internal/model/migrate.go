package model

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate 初始化数据库表结构
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &Follow{}, &Post{}, &Like{}, &Comment{}, &Notification{}, &Outbox{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
