package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/relation-feed/internal/api/middleware"
	"github.com/d60-Lab/relation-feed/pkg/response"
)

type commentRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

// CreateComment 发表评论
// @Summary 评论帖子
// @Tags 评论
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param post_id path string true "帖子ID"
// @Param request body commentRequest true "评论内容"
// @Success 201 {object} response.Response{data=model.Comment}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/comments [post]
func (h *Handler) CreateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cm, err := h.commentService.Create(c.Request.Context(), middleware.CurrentUserID(c), c.Param("post_id"), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cm)
}

// ListComments 评论列表
// @Summary 帖子的评论（按时间正序）
// @Tags 评论
// @Produce json
// @Param post_id path string true "帖子ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	page, pageSize, err := h.pageQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := h.commentService.ListByPost(c.Request.Context(), c.Param("post_id"), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// GetComment 评论详情
// @Summary 评论详情
// @Tags 评论
// @Produce json
// @Param comment_id path string true "评论ID"
// @Success 200 {object} response.Response{data=model.Comment}
// @Failure 404 {object} response.Response
// @Router /api/v1/comments/{comment_id} [get]
func (h *Handler) GetComment(c *gin.Context) {
	cm, err := h.commentService.Get(c.Request.Context(), c.Param("comment_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cm)
}

// UpdateComment 修改评论，仅作者
// @Summary 修改评论
// @Tags 评论
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param comment_id path string true "评论ID"
// @Param request body commentRequest true "评论内容"
// @Success 200 {object} response.Response{data=model.Comment}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/comments/{comment_id} [put]
func (h *Handler) UpdateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	cm, err := h.commentService.Update(c.Request.Context(), middleware.CurrentUserID(c), c.Param("comment_id"), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cm)
}

// DeleteComment 删除评论，仅作者
// @Summary 删除评论
// @Tags 评论
// @Security BearerAuth
// @Param comment_id path string true "评论ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/comments/{comment_id} [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	if err := h.commentService.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("comment_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
