package stats

import (
	"blog_api/internal/domain/stats/client"
	"blog_api/internal/domain/stats/handler"
	"blog_api/internal/domain/stats/service"
	"blog_api/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// StatsModule 第三方统计模块
type StatsModule struct{}

func init() {
	registry.Register(&StatsModule{})
}

func (m *StatsModule) Name() string {
	return "stats"
}

func (m *StatsModule) Priority() int {
	return 20
}

func (m *StatsModule) Init(ctx *registry.ModuleContext) error {
	upstream := client.New(client.Options{})
	svc := service.NewStatsService(upstream, ctx.Cache, ctx.Limiter, ctx.Config.Stats)
	h := handler.NewStatsHandler(svc)

	setupRoutes(ctx.Router, h)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.StatsHandler) {
	g := r.Group("/api/stats")
	{
		g.GET("/wakatime", h.GetWakatime)
		g.GET("/youtube", h.GetYoutube)
	}
}
