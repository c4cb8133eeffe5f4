package comment

import (
	"blog_api/internal/domain/comment/handler"
	"blog_api/internal/domain/comment/repository"
	"blog_api/internal/domain/comment/service"
	"blog_api/internal/pkg/middleware"
	"blog_api/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CommentModule 评论模块
type CommentModule struct{}

func init() {
	registry.Register(&CommentModule{})
}

func (m *CommentModule) Name() string {
	return "comment"
}

func (m *CommentModule) Priority() int {
	return 10
}

func (m *CommentModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	repo := repository.NewCommentRepository(ctx.DB)
	svc := service.NewCommentService(repo, ctx.Counter, ctx.Limiter, ctx.Catalog, ctx.Notifier)
	h := handler.NewCommentHandler(svc)

	// 2. 路由注册
	setupRoutes(ctx.Router, h)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CommentHandler) {
	g := r.Group("/api/comments")

	g.GET("", h.GetComments)
	g.GET("/count", h.GetCommentsCount)
	g.GET("/replies-count", h.GetRepliesCount)
	g.GET("/total-count", h.GetTotalCommentsCount)

	auth := g.Group("")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.POST("", h.PostComment)
		auth.DELETE("/:id", h.DeleteComment)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminMiddleware())
	{
		admin.GET("/comments", h.AdminGetComments)
	}
}
