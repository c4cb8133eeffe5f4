package post

import (
	"blog_api/internal/domain/post/handler"
	"blog_api/internal/domain/post/repository"
	"blog_api/internal/domain/post/service"
	"blog_api/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// PostModule 浏览/点赞模块
type PostModule struct{}

func init() {
	registry.Register(&PostModule{})
}

func (m *PostModule) Name() string {
	return "post"
}

func (m *PostModule) Priority() int {
	return 10
}

func (m *PostModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewPostRepository(ctx.DB)
	views := service.NewViewService(repo, ctx.Counter, ctx.Limiter)
	likes := service.NewLikeService(repo, ctx.Counter, ctx.Limiter)
	h := handler.NewPostHandler(views, likes)

	setupRoutes(ctx.Router, h)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.PostHandler) {
	views := r.Group("/api/views")
	{
		views.GET("", h.GetViews)
		views.GET("/count", h.GetViewCount)
		views.POST("", h.IncrementViews)
	}

	likes := r.Group("/api/likes")
	{
		likes.GET("", h.GetLikes)
		likes.GET("/count", h.GetLikeCount)
		likes.PATCH("", h.PatchLikes)
	}
}
