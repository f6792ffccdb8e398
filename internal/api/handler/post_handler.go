package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/relation-feed/internal/api/middleware"
	"github.com/d60-Lab/relation-feed/internal/repository"
	"github.com/d60-Lab/relation-feed/internal/service"
	"github.com/d60-Lab/relation-feed/pkg/response"
)

type createPostRequest struct {
	Title   string `json:"title" binding:"required,max=255"`
	Content string `json:"content" binding:"max=10000"`
}

type updatePostRequest struct {
	Title   *string `json:"title" binding:"omitempty,max=255"`
	Content *string `json:"content" binding:"omitempty,max=10000"`
}

// CreatePost 发帖
// @Summary 发布帖子
// @Tags 帖子
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body createPostRequest true "帖子内容"
// @Success 201 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.postService.Create(c.Request.Context(), middleware.CurrentUserID(c), req.Title, req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// ListPosts 帖子列表
// @Summary 全站帖子（按发布时间倒序）
// @Description q 按空白拆词，每个词需出现在标题或正文中；author 按作者筛选
// @Tags 帖子
// @Produce json
// @Param author query string false "作者ID"
// @Param q query string false "关键词"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	page, pageSize, err := h.pageQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	f := repository.PostFilter{AuthorID: c.Query("author"), Query: c.Query("q")}
	list, err := h.postService.List(c.Request.Context(), f, middleware.CurrentUserID(c), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// GetPost 帖子详情
// @Summary 帖子详情（含点赞数）
// @Tags 帖子
// @Produce json
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response{data=model.PostWithStats}
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	p, err := h.postService.Get(c.Request.Context(), c.Param("post_id"), middleware.CurrentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// UpdatePost 修改帖子，仅作者
// @Summary 修改帖子
// @Tags 帖子
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param post_id path string true "帖子ID"
// @Param request body updatePostRequest true "修改内容"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.postService.Update(c.Request.Context(), middleware.CurrentUserID(c), c.Param("post_id"),
		service.PostUpdate{Title: req.Title, Content: req.Content})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

// DeletePost 删除帖子，仅作者
// @Summary 删除帖子
// @Tags 帖子
// @Security BearerAuth
// @Param post_id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{post_id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.postService.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("post_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
