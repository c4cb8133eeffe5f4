package common

import (
	commonHandler "blog_api/internal/pkg/common"
	"blog_api/internal/pkg/registry"
	"blog_api/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// CommonModule 通用功能模块
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	r := ctx.Router
	r.GET("/health", commonHandler.Health(ctx.DB, ctx.Redis))
	r.GET("/metrics", gin.WrapH(metrics.GetGlobalCollector().Handler()))
	return nil
}
