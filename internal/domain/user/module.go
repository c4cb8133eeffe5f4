package user

import (
	"blog_api/internal/domain/user/handler"
	"blog_api/internal/domain/user/repository"
	"blog_api/internal/domain/user/service"
	"blog_api/internal/pkg/middleware"
	"blog_api/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// UserModule 用户模块
type UserModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&UserModule{})
}

func (m *UserModule) Name() string {
	return "user"
}

func (m *UserModule) Priority() int {
	return 1
}

func (m *UserModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	userRepo := repository.NewUserRepository(ctx.DB)
	userService := service.NewUserService(userRepo)
	userHandler := handler.NewUserHandler(userService)

	// 2. 路由注册
	setupRoutes(ctx.Router, userHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.UserHandler) {
	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminMiddleware())
	{
		admin.GET("/users", h.GetUsers)
	}
}
