package response

import (
	"net/http"

	"blog_api/pkg/apperror"
	"blog_api/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`    // 业务码
	Message string      `json:"message"` // 提示信息
	Data    interface{} `json:"data"`    // 数据
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, errCode int, msg string) {
	c.JSON(httpCode, Response{
		Code:    errCode,
		Message: msg,
		Data:    nil,
	})
}

// HandleError 将 service 返回的错误映射为 HTTP 响应
// 业务错误原样返回；其它错误统一为 500，细节只写日志
func HandleError(c *gin.Context, err error) {
	if appErr, ok := apperror.As(err); ok {
		Error(c, appErr.Status(), businessCode(appErr.Code), appErr.Message)
		return
	}

	logger.Log.Error("request failed",
		zap.String("path", c.FullPath()),
		zap.String("method", c.Request.Method),
		zap.Error(err),
	)
	Error(c, http.StatusInternalServerError, ErrServerInternal, "internal server error")
}

func businessCode(code apperror.Code) int {
	switch code {
	case apperror.CodeRateLimited:
		return ErrTooManyRequests
	case apperror.CodeNotFound:
		return ErrNotFound
	case apperror.CodeUnauthorized:
		return ErrAuthFailed
	case apperror.CodeForbidden:
		return ErrNoPermission
	case apperror.CodeBadRequest:
		return ErrInvalidParam
	default:
		return ErrServerInternal
	}
}
