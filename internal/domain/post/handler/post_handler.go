package handler

import (
	"net/http"

	"blog_api/internal/domain/post/service"
	"blog_api/internal/pkg/middleware"
	"blog_api/pkg/response"

	"github.com/gin-gonic/gin"
)

// PostHandler 浏览与点赞
type PostHandler struct {
	views service.ViewService
	likes service.LikeService
}

func NewPostHandler(views service.ViewService, likes service.LikeService) *PostHandler {
	return &PostHandler{views: views, likes: likes}
}

// SlugQuery 查询参数
type SlugQuery struct {
	Slug string `form:"slug" binding:"required,notblank"`
}

// SlugInput 浏览数 +1 输入
type SlugInput struct {
	Slug string `json:"slug" binding:"required,notblank"`
}

// LikeInput 点赞输入
type LikeInput struct {
	Slug  string `json:"slug" binding:"required,notblank"`
	Value int64  `json:"value" binding:"required,min=1,max=3"`
}

// GetViews 单篇浏览数
func (h *PostHandler) GetViews(c *gin.Context) {
	var q SlugQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	n, err := h.views.Get(c.Request.Context(), middleware.GetCaller(c), q.Slug)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"views": n})
}

// GetViewCount 全站浏览总数
func (h *PostHandler) GetViewCount(c *gin.Context) {
	n, err := h.views.Count(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"views": n})
}

// IncrementViews 浏览数 +1
func (h *PostHandler) IncrementViews(c *gin.Context) {
	var input SlugInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	n, err := h.views.Increment(c.Request.Context(), middleware.GetCaller(c), input.Slug)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"views": n})
}

// GetLikes 单篇点赞数与当前会话点赞数
func (h *PostHandler) GetLikes(c *gin.Context) {
	var q SlugQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	state, err := h.likes.Get(c.Request.Context(), middleware.GetCaller(c), q.Slug)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, state)
}

// GetLikeCount 全站点赞总数
func (h *PostHandler) GetLikeCount(c *gin.Context) {
	n, err := h.likes.Count(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"likes": n})
}

// PatchLikes 点赞
func (h *PostHandler) PatchLikes(c *gin.Context) {
	var input LikeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	state, err := h.likes.Patch(c.Request.Context(), middleware.GetCaller(c), input.Slug, input.Value)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, state)
}
