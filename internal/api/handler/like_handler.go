package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/relation-feed/internal/api/middleware"
	"github.com/d60-Lab/relation-feed/pkg/response"
)

// Like 点赞
// @Summary 点赞帖子
// @Tags 点赞
// @Security BearerAuth
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=map[string]bool}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/like [post]
func (h *Handler) Like(c *gin.Context) {
	created, err := h.likeService.Like(c.Request.Context(), middleware.CurrentUserID(c), c.Param("post_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"created": created})
}

// Unlike 取消点赞
// @Summary 取消点赞
// @Tags 点赞
// @Security BearerAuth
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=map[string]bool}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/unlike [post]
func (h *Handler) Unlike(c *gin.Context) {
	removed, err := h.likeService.Unlike(c.Request.Context(), middleware.CurrentUserID(c), c.Param("post_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"removed": removed})
}

// ListLikes 点赞列表
// @Summary 帖子的点赞列表
// @Tags 点赞
// @Param post_id path string true "帖子ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/posts/{post_id}/likes [get]
func (h *Handler) ListLikes(c *gin.Context) {
	page, pageSize, err := h.pageQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.likeService.ListLikes(c.Request.Context(), c.Param("post_id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}
