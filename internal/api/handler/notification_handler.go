package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/relation-feed/internal/api/middleware"
	"github.com/d60-Lab/relation-feed/pkg/response"
)

func (h *Handler) listNotifications(c *gin.Context, unreadOnly bool) {
	page, pageSize, err := h.pageQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.notifService.List(c.Request.Context(), middleware.CurrentUserID(c), unreadOnly, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListNotifications 全部通知
// @Summary 通知列表
// @Tags 通知
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) { h.listNotifications(c, false) }

// ListUnread 未读通知
// @Summary 未读通知列表
// @Tags 通知
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/notifications/unread [get]
func (h *Handler) ListUnread(c *gin.Context) { h.listNotifications(c, true) }

// UnreadCount 未读数
// @Summary 未读通知数
// @Tags 通知
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]int64}
// @Router /api/v1/notifications/count [get]
func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.notifService.UnreadCount(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"unread": n})
}

// MarkRead 标记单条已读
// @Summary 标记通知已读
// @Tags 通知
// @Security BearerAuth
// @Param id path string true "通知ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/notifications/{id}/read [post]
func (h *Handler) MarkRead(c *gin.Context) {
	if err := h.notifService.MarkRead(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkAllRead 全部已读
// @Summary 全部标记已读
// @Tags 通知
// @Security BearerAuth
// @Success 200 {object} response.Response{data=map[string]int64}
// @Router /api/v1/notifications/read-all [post]
func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.notifService.MarkAllRead(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"marked": n})
}
