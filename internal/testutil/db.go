// Package testutil 提供测试用的内存数据库与数据构造函数
package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/relation-feed/internal/model"
)

// NewDB 打开一个独立的 sqlite 内存库并完成迁移。
// 连接数固定为 1，保证同一测试内所有查询看到同一个 :memory: 库。
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := model.AutoMigrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedUsers 创建 n 个用户，返回按创建顺序排列的 ID
func SeedUsers(tb testing.TB, db *gorm.DB, n int) []string {
	tb.Helper()
	ids := make([]string, n)
	users := make([]model.User, n)
	for i := 0; i < n; i++ {
		id := model.NewID()
		ids[i] = id
		users[i] = model.User{ID: id, Username: fmt.Sprintf("u%04d_%s", i, id[:8]), Email: id[:8] + "@example.com", Password: "p"}
	}
	if n > 0 {
		if err := db.Create(&users).Error; err != nil {
			tb.Fatalf("seed users: %v", err)
		}
	}
	return ids
}

// SeedPost 以指定作者和创建时间写入一条帖子
func SeedPost(tb testing.TB, db *gorm.DB, authorID, title string, createdAt time.Time) model.Post {
	tb.Helper()
	p := model.Post{ID: model.NewID(), AuthorID: authorID, Title: title, CreatedAt: createdAt.UTC(), UpdatedAt: createdAt.UTC()}
	if err := db.Create(&p).Error; err != nil {
		tb.Fatalf("seed post: %v", err)
	}
	return p
}
