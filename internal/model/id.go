package model

import "github.com/google/uuid"

// NewID 生成 UUIDv7：前 48 位为毫秒时间戳，同进程内单调递增，
// 字符串比较即生成顺序，可作为 created_at 相同时的排序兜底
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
