package handler

import (
	"context"
	"net/http"

	"blog_api/internal/domain/comment/model"
	"blog_api/internal/domain/comment/service"
	"blog_api/internal/pkg/auth"
	"blog_api/internal/pkg/middleware"
	"blog_api/pkg/response"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	service service.CommentService
}

func NewCommentHandler(s service.CommentService) *CommentHandler {
	return &CommentHandler{service: s}
}

// ListQuery 评论列表查询参数
type ListQuery struct {
	Slug                 string `form:"slug" binding:"required"`
	ParentID             string `form:"parentId"`
	Type                 string `form:"type" binding:"omitempty,oneof=comments replies"`
	Sort                 string `form:"sort" binding:"omitempty,oneof=newest oldest"`
	Cursor               string `form:"cursor"`
	Limit                int    `form:"limit" binding:"omitempty,min=1,max=50"`
	HighlightedCommentID string `form:"highlightedCommentId"`
}

// SlugQuery 计数查询参数
type SlugQuery struct {
	Slug string `form:"slug" binding:"required"`
}

// PostInput 发表评论输入
type PostInput struct {
	Slug     string `json:"slug" binding:"required"`
	Content  string `json:"content" binding:"required,notblank"`
	Date     string `json:"date" binding:"required,notblank"`
	ParentID string `json:"parentId"`
}

// GetComments 游标分页获取评论
func (h *CommentHandler) GetComments(c *gin.Context) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	page, err := h.service.ListPage(c.Request.Context(), middleware.GetCaller(c), service.ListInput{
		Slug:                 q.Slug,
		ParentID:             q.ParentID,
		Type:                 model.CommentType(q.Type),
		Sort:                 model.SortOrder(q.Sort),
		Cursor:               q.Cursor,
		Limit:                q.Limit,
		HighlightedCommentID: q.HighlightedCommentID,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, page)
}

// GetCommentsCount 顶级评论数
func (h *CommentHandler) GetCommentsCount(c *gin.Context) {
	h.count(c, "comments", h.service.CommentsCount)
}

// GetRepliesCount 回复数
func (h *CommentHandler) GetRepliesCount(c *gin.Context) {
	h.count(c, "replies", h.service.RepliesCount)
}

// GetTotalCommentsCount 评论总数
func (h *CommentHandler) GetTotalCommentsCount(c *gin.Context) {
	h.count(c, "comments", h.service.TotalCount)
}

type countFunc func(ctx context.Context, caller auth.Caller, slug string) (int64, error)

func (h *CommentHandler) count(c *gin.Context, field string, fn countFunc) {
	var q SlugQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	n, err := fn(c.Request.Context(), middleware.GetCaller(c), q.Slug)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{field: n})
}

// PostComment 发表评论或回复
func (h *CommentHandler) PostComment(c *gin.Context) {
	var input PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	comment, err := h.service.Post(c.Request.Context(), middleware.GetCaller(c), service.PostInput{
		Slug:     input.Slug,
		Content:  input.Content,
		Date:     input.Date,
		ParentID: input.ParentID,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": comment.ID})
}

// DeleteComment 删除自己的评论
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.GetCaller(c), c.Param("id")); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, nil)
}

// AdminGetComments 后台获取全部评论
func (h *CommentHandler) AdminGetComments(c *gin.Context) {
	list, err := h.service.AdminList(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, list)
}
