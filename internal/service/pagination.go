package service

import "math"

// pageWindow 校验页码参数并换算为 offset/limit；pageSize 超过 maxPageSize 时截断
func pageWindow(page, pageSize, maxPageSize int) (offset, limit int, err error) {
	if page < 1 || pageSize < 1 {
		return 0, 0, ErrBadPage
	}
	if maxPageSize > 0 && pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	// offset 溢出为负数时 gorm 会忽略它，直接返回第一页
	if page-1 > math.MaxInt/pageSize {
		return 0, 0, ErrPageOutOfRange
	}
	return (page - 1) * pageSize, pageSize, nil
}
