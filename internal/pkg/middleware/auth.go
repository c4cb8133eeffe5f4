package middleware

import (
	"net/http"
	"strings"

	"blog_api/internal/pkg/auth"
	"blog_api/pkg/response"
	"blog_api/pkg/utils"

	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

// IdentityMiddleware 解析可选的 Bearer Token，把调用方写入上下文
// 没有 Authorization 头时按匿名处理；头存在但无效时直接拒绝
func IdentityMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := auth.Caller{IP: c.ClientIP()}

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			// 检查格式 "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid authorization header format")
				c.Abort()
				return
			}

			claims, err := utils.ParseToken(secret, parts[1])
			if err != nil {
				response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
				c.Abort()
				return
			}
			caller.User = &auth.Identity{
				ID:    claims.UserID,
				Name:  claims.Name,
				Email: claims.Email,
				Image: claims.Image,
				Role:  claims.Role,
			}
		}

		c.Set(callerKey, caller)
		c.Request = c.Request.WithContext(auth.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

// Require 按路由声明的访问要求做校验
func Require(req auth.Requirement) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := req.Check(GetCaller(c)); err != nil {
			response.HandleError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthMiddleware 需要登录
func AuthMiddleware() gin.HandlerFunc {
	return Require(auth.User)
}

// AdminMiddleware 管理员权限中间件
func AdminMiddleware() gin.HandlerFunc {
	return Require(auth.Admin)
}

// GetCaller 读取当前调用方
func GetCaller(c *gin.Context) auth.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(auth.Caller); ok {
			return caller
		}
	}
	return auth.Caller{IP: c.ClientIP()}
}
