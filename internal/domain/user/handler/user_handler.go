package handler

import (
	"net/http"

	"blog_api/internal/domain/user/service"
	"blog_api/internal/pkg/middleware"
	"blog_api/pkg/response"
	"blog_api/pkg/utils"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	service service.UserService
}

// NewUserHandler 创建处理器
func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// GetUsers 获取所有用户（管理员）
func (h *UserHandler) GetUsers(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	result, err := h.service.GetUsers(c.Request.Context(), middleware.GetCaller(c), page)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, result)
}
