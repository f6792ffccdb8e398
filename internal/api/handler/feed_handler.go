package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/relation-feed/internal/api/middleware"
	"github.com/d60-Lab/relation-feed/internal/service"
	"github.com/d60-Lab/relation-feed/pkg/response"
)

// Feed 关注流
// @Summary 当前用户的关注流（按发布时间倒序）
// @Description 传 cursor 时按游标翻页，忽略 page
// @Tags 关注流
// @Security BearerAuth
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Param cursor query string false "上一页返回的 next_cursor"
// @Success 200 {object} response.Response{data=service.FeedPage}
// @Failure 400 {object} response.Response
// @Router /api/v1/feed [get]
func (h *Handler) Feed(c *gin.Context) {
	viewer := middleware.CurrentUserID(c)
	var (
		out *service.FeedPage
		err error
	)
	if cursor, ok := c.GetQuery("cursor"); ok {
		var pageSize int
		pageSize, err = strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.defaultPageSize)))
		if err != nil {
			response.BadRequest(c, "page_size must be an integer")
			return
		}
		out, err = h.feedService.BuildFeedAfter(c.Request.Context(), viewer, cursor, pageSize)
	} else {
		var page, pageSize int
		page, pageSize, err = h.pageQuery(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		out, err = h.feedService.BuildFeed(c.Request.Context(), viewer, page, pageSize)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, out)
}
