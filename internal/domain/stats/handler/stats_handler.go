package handler

import (
	"blog_api/internal/domain/stats/service"
	"blog_api/internal/pkg/middleware"
	"blog_api/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	service service.StatsService
}

func NewStatsHandler(s service.StatsService) *StatsHandler {
	return &StatsHandler{service: s}
}

// GetWakatime 编码时长
func (h *StatsHandler) GetWakatime(c *gin.Context) {
	stats, err := h.service.Wakatime(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, stats)
}

// GetYoutube 频道统计
func (h *StatsHandler) GetYoutube(c *gin.Context) {
	stats, err := h.service.Youtube(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, stats)
}
